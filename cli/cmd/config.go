package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  "Display the configuration after merging defaults, the config file, environment variables, and flags. Sensitive values are redacted.",
	RunE:  showConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func showConfig(cmd *cobra.Command, args []string) error {
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("# config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Println("# config file: none found")
	}

	effective := map[string]interface{}{
		"vault": map[string]interface{}{
			"path":       viper.GetString("vault.path"),
			"store_type": viper.GetString("vault.store_type"),
			"kdf":        viper.GetString("vault.kdf"),
			"iterations": viper.GetInt("vault.iterations"),
			"passphrase": redact(viper.GetString("vault.passphrase")),
			"s3": map[string]interface{}{
				"endpoint":          viper.GetString("vault.s3.endpoint"),
				"region":            viper.GetString("vault.s3.region"),
				"bucket":            viper.GetString("vault.s3.bucket"),
				"prefix":            viper.GetString("vault.s3.prefix"),
				"access_key_id":     redact(viper.GetString("vault.s3.access_key_id")),
				"secret_access_key": redact(viper.GetString("vault.s3.secret_access_key")),
				"use_ssl":           viper.GetBool("vault.s3.use_ssl"),
			},
		},
		"audit": map[string]interface{}{
			"enabled": viper.GetBool("audit.enabled"),
			"options": map[string]interface{}{
				"file_path": viper.GetString("audit.options.file_path"),
			},
		},
	}

	out, err := yaml.Marshal(effective)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	return "***REDACTED***"
}
