package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var secretsCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage API keys in the vault",
	Long:  "Store, retrieve, list, and delete service API keys.",
}

var storeSecretCmd = &cobra.Command{
	Use:   "store [service]",
	Short: "Store an API key",
	Long:  "Encrypt and store an API key for a service, replacing any previous value. The key can be provided with --key or entered at a hidden prompt.",
	Args:  cobra.ExactArgs(1),
	RunE:  storeSecret,
}

var getSecretCmd = &cobra.Command{
	Use:   "get [service]",
	Short: "Retrieve an API key",
	Long:  "Decrypt and print the API key stored for a service.",
	Args:  cobra.ExactArgs(1),
	RunE:  getSecret,
}

var listSecretsCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored services",
	Long:  "List the services with stored API keys. Key material is never shown.",
	RunE:  listSecrets,
}

var deleteSecretCmd = &cobra.Command{
	Use:   "delete [service]",
	Short: "Delete an API key",
	Long:  "Permanently delete the API key stored for a service.",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteSecret,
}

var (
	secretValue string
	outputJSON  bool
)

func init() {
	rootCmd.AddCommand(secretsCmd)

	secretsCmd.AddCommand(storeSecretCmd)
	secretsCmd.AddCommand(getSecretCmd)
	secretsCmd.AddCommand(listSecretsCmd)
	secretsCmd.AddCommand(deleteSecretCmd)

	storeSecretCmd.Flags().StringVarP(&secretValue, "key", "k", "", "API key value (omit to be prompted)")
	getSecretCmd.Flags().BoolVar(&outputJSON, "json", false, "output in JSON format")
	listSecretsCmd.Flags().BoolVar(&outputJSON, "json", false, "output in JSON format")
}

func storeSecret(cmd *cobra.Command, args []string) error {
	service := args[0]

	value := secretValue
	if value == "" {
		entered, err := readPassword(fmt.Sprintf("API key for %s: ", service))
		if err != nil {
			return err
		}
		value = string(entered)
	}

	if err := vaultSvc.StoreSecret(service, value); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	fmt.Printf("Secret for '%s' stored successfully\n", service)
	return nil
}

func getSecret(cmd *cobra.Command, args []string) error {
	service := args[0]

	value, err := vaultSvc.GetSecret(service)
	if err != nil {
		return fmt.Errorf("failed to get secret: %w", err)
	}

	if outputJSON {
		out := map[string]string{"service": service, "api_key": value}
		encoded, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Println(value)
	return nil
}

func listSecrets(cmd *cobra.Command, args []string) error {
	services, err := vaultSvc.ListServices()
	if err != nil {
		return fmt.Errorf("failed to list services: %w", err)
	}

	if outputJSON {
		encoded, err := json.MarshalIndent(services, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(encoded))
		return nil
	}

	if len(services) == 0 {
		fmt.Println("No secrets stored")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE")
	for _, service := range services {
		fmt.Fprintln(w, service)
	}
	return w.Flush()
}

func deleteSecret(cmd *cobra.Command, args []string) error {
	service := args[0]

	if err := vaultSvc.DeleteSecret(service); err != nil {
		return fmt.Errorf("failed to delete secret: %w", err)
	}

	fmt.Printf("Secret for '%s' deleted\n", service)
	return nil
}
