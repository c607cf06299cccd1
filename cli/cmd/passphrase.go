package cmd

import (
	"bytes"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
)

var changePassphraseCmd = &cobra.Command{
	Use:   "change-passphrase",
	Short: "Change the master password",
	Long: `Change the master password. Every stored API key is re-encrypted under a
key derived from the new password with a fresh salt; the swap is atomic, so
an interrupted change leaves the vault fully usable under the old password.`,
	RunE: changePassphrase,
}

func init() {
	rootCmd.AddCommand(changePassphraseCmd)
}

func changePassphrase(cmd *cobra.Command, args []string) error {
	current, err := readPassword("Current master password: ")
	if err != nil {
		return err
	}

	newPassword, err := readPassword("New master password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm new master password: ")
	if err != nil {
		return err
	}
	match := bytes.Equal(newPassword, confirm)
	memguard.WipeBytes(confirm)
	if !match {
		return fmt.Errorf("new passwords do not match")
	}

	if err := vaultSvc.ChangeMasterPassword(current, newPassword); err != nil {
		return fmt.Errorf("failed to change master password: %w", err)
	}

	fmt.Println("Master password changed successfully")
	return nil
}
