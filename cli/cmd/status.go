package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	vault "github.com/bvishnuvamsi/Secret-Manager"
	"github.com/bvishnuvamsi/Secret-Manager/internal/mem"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vault status",
	Long:  "Display the vault state, storage backend, and number of stored secrets.",
	RunE:  showStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func showStatus(cmd *cobra.Command, args []string) error {
	services, err := vaultSvc.ListServices()
	if err != nil {
		return fmt.Errorf("failed to read vault: %w", err)
	}

	fmt.Printf("State:             %s\n", vaultSvc.State())
	fmt.Printf("Store type:        %s\n", viper.GetString("vault.store_type"))
	fmt.Printf("Vault path:        %s\n", viper.GetString("vault.path"))
	fmt.Printf("Stored secrets:    %d\n", len(services))

	if v, ok := vaultSvc.(*vault.Vault); ok {
		fmt.Printf("Memory protection: %s\n", protectionName(v.MemoryProtection()))
	}
	return nil
}

func protectionName(level mem.ProtectionLevel) string {
	switch level {
	case mem.ProtectionFull:
		return "full (memory locked)"
	case mem.ProtectionPartial:
		return "partial"
	default:
		return "none"
	}
}
