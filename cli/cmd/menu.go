package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	vault "github.com/bvishnuvamsi/Secret-Manager"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Interactive session",
	Long:  "Run an interactive session against the unlocked vault: store, retrieve, list, and delete API keys without re-entering the master password for each command.",
	RunE:  runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

func runMenu(cmd *cobra.Command, args []string) error {
	for {
		fmt.Println()
		fmt.Println("1) Store an API key")
		fmt.Println("2) Retrieve an API key")
		fmt.Println("3) List services")
		fmt.Println("4) Delete an API key")
		fmt.Println("5) Change master password")
		fmt.Println("6) Quit")
		fmt.Print("> ")

		choice, err := readLine()
		if err != nil {
			return err
		}

		switch strings.TrimSpace(choice) {
		case "1":
			if err := menuStore(); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "2":
			if err := menuGet(); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "3":
			if err := listSecrets(cmd, nil); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "4":
			if err := menuDelete(); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "5":
			if err := changePassphrase(cmd, nil); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		case "6", "q", "quit", "exit":
			return nil
		default:
			fmt.Println("Unknown choice")
		}
	}
}

func menuStore() error {
	fmt.Print("Service name: ")
	service, err := readLine()
	if err != nil {
		return err
	}
	apiKey, err := readPassword(fmt.Sprintf("API key for %s: ", service))
	if err != nil {
		return err
	}

	if err := vaultSvc.StoreSecret(service, string(apiKey)); err != nil {
		return err
	}
	fmt.Printf("Secret for '%s' stored\n", service)
	return nil
}

func menuGet() error {
	fmt.Print("Service name: ")
	service, err := readLine()
	if err != nil {
		return err
	}

	value, err := vaultSvc.GetSecret(service)
	if errors.Is(err, vault.ErrNotFound) {
		fmt.Printf("No secret stored for '%s'\n", service)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func menuDelete() error {
	fmt.Print("Service name: ")
	service, err := readLine()
	if err != nil {
		return err
	}

	err = vaultSvc.DeleteSecret(service)
	if errors.Is(err, vault.ErrNotFound) {
		fmt.Printf("No secret stored for '%s'\n", service)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Secret for '%s' deleted\n", service)
	return nil
}
