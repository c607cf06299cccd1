package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	vault "github.com/bvishnuvamsi/Secret-Manager"
	"github.com/bvishnuvamsi/Secret-Manager/audit"
	"github.com/bvishnuvamsi/Secret-Manager/internal/misc"
	"github.com/bvishnuvamsi/Secret-Manager/persist"
)

var (
	cfgFile    string
	vaultPath  string
	passphrase string
	vaultSvc   vault.VaultService
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "secret-manager",
	Short: "An encrypted local store for service API keys",
	Long: `An encrypted local store for service API keys. Secrets are encrypted with
ChaCha20-Poly1305 under a key derived from a master password that is never
written to disk. Storage backends: a local envelope file, a SQLite database,
or an S3-compatible bucket.`,
	PersistentPreRunE: initializeVault,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if vaultSvc != nil {
			return vaultSvc.Close()
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags - consistent with config file structure
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.secret-manager.yaml)")
	rootCmd.PersistentFlags().StringVarP(&vaultPath, "vault-path", "p", "", "path to vault storage")
	rootCmd.PersistentFlags().StringVar(&passphrase, "passphrase", "", "master password (or use VAULT_PASSPHRASE env var)")
	rootCmd.PersistentFlags().String("store-type", "", "storage backend type (filesystem, sqlite, s3)")
	rootCmd.PersistentFlags().String("kdf", "", "key derivation algorithm for new vaults (PBKDF2HMAC-SHA256, ARGON2ID)")
	rootCmd.PersistentFlags().Int("iterations", 0, "derivation work factor for new vaults")

	bindFlagOrPanic("vault.path", "vault-path")
	bindFlagOrPanic("vault.passphrase", "passphrase")
	bindFlagOrPanic("vault.store_type", "store-type")
	bindFlagOrPanic("vault.kdf", "kdf")
	bindFlagOrPanic("vault.iterations", "iterations")

	// Audit flags
	rootCmd.PersistentFlags().Bool("audit", false, "enable audit logging")
	rootCmd.PersistentFlags().String("audit-file", "", "audit log file path")

	bindFlagOrPanic("audit.enabled", "audit")
	bindFlagOrPanic("audit.options.file_path", "audit-file")

	// S3 flags (for direct CLI usage)
	rootCmd.PersistentFlags().String("s3-endpoint", "", "S3 endpoint URL")
	rootCmd.PersistentFlags().String("s3-region", "", "S3 region")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket name")
	rootCmd.PersistentFlags().String("s3-prefix", "", "S3 key prefix")
	rootCmd.PersistentFlags().String("s3-access-key", "", "S3 access key ID")
	rootCmd.PersistentFlags().String("s3-secret-key", "", "S3 secret access key")
	rootCmd.PersistentFlags().Bool("s3-use-ssl", true, "Use SSL for S3 connections")

	bindFlagOrPanic("vault.s3.endpoint", "s3-endpoint")
	bindFlagOrPanic("vault.s3.region", "s3-region")
	bindFlagOrPanic("vault.s3.bucket", "s3-bucket")
	bindFlagOrPanic("vault.s3.prefix", "s3-prefix")
	bindFlagOrPanic("vault.s3.access_key_id", "s3-access-key")
	bindFlagOrPanic("vault.s3.secret_access_key", "s3-secret-key")
	bindFlagOrPanic("vault.s3.use_ssl", "s3-use-ssl")
}

func bindFlagOrPanic(configKey, flagName string) {
	if err := viper.BindPFlag(configKey, rootCmd.PersistentFlags().Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind %s flag: %v", flagName, err))
	}
}

func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")

		viper.SetConfigType("yaml")
		viper.SetConfigName(".secret-manager")
	}

	viper.SetEnvPrefix("VAULT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}
}

func setDefaults() {
	viper.SetDefault("vault.path", ".vault")
	viper.SetDefault("vault.store_type", "filesystem")
	viper.SetDefault("vault.kdf", misc.KDFPBKDF2SHA256)
	viper.SetDefault("vault.iterations", misc.DefaultIterations)

	viper.SetDefault("vault.s3.region", "us-east-1")
	viper.SetDefault("vault.s3.prefix", "vault/")
	viper.SetDefault("vault.s3.use_ssl", true)

	viper.SetDefault("audit.enabled", false)
	viper.SetDefault("audit.options.file_path", "audit.log")
}

func initializeVault(cmd *cobra.Command, args []string) error {
	// Skip initialization for commands that do not touch the vault
	switch cmd.Name() {
	case "help", "completion", "__complete", "config", "version":
		return nil
	}

	vaultPath = viper.GetString("vault.path")

	storeConfig, err := buildStoreConfig(viper.GetString("vault.store_type"))
	if err != nil {
		return err
	}

	options := vault.DefaultOptions()
	options.KDF = viper.GetString("vault.kdf")
	options.Iterations = viper.GetInt("vault.iterations")
	if viper.GetBool("audit.enabled") {
		options.Audit = &audit.Config{
			Enabled: true,
			Type:    audit.FileAuditType,
			Options: map[string]interface{}{
				"file_path": viper.GetString("audit.options.file_path"),
			},
		}
	}

	password, err := resolvePassphrase(options.EnvPassphraseVar, "Master password: ")
	if err != nil {
		return err
	}

	v, err := vault.New(options, storeConfig)
	if err != nil {
		return fmt.Errorf("failed to open vault: %w", err)
	}
	if err = v.Unlock(password); err != nil {
		_ = v.Close()
		return fmt.Errorf("failed to unlock vault: %w", err)
	}

	vaultSvc = v
	return nil
}

func buildStoreConfig(storeType string) (persist.StoreConfig, error) {
	switch strings.ToLower(storeType) {
	case "filesystem", "file":
		return persist.StoreConfig{
			Type:   persist.StoreTypeFileSystem,
			Config: map[string]interface{}{"base_path": vaultPath},
		}, nil

	case "sqlite":
		return persist.StoreConfig{
			Type:   persist.StoreTypeSQLite,
			Config: map[string]interface{}{"path": vaultPath + "/vault.db"},
		}, nil

	case "s3":
		config := map[string]interface{}{
			"endpoint":          viper.GetString("vault.s3.endpoint"),
			"region":            viper.GetString("vault.s3.region"),
			"bucket":            viper.GetString("vault.s3.bucket"),
			"key_prefix":        viper.GetString("vault.s3.prefix"),
			"access_key_id":     viper.GetString("vault.s3.access_key_id"),
			"secret_access_key": viper.GetString("vault.s3.secret_access_key"),
			"use_ssl":           viper.GetBool("vault.s3.use_ssl"),
		}
		if err := validateS3Config(); err != nil {
			return persist.StoreConfig{}, fmt.Errorf("invalid S3 configuration: %w", err)
		}
		return persist.StoreConfig{Type: persist.StoreTypeS3, Config: config}, nil

	default:
		return persist.StoreConfig{}, fmt.Errorf("unsupported store type: %s. Supported types: filesystem, sqlite, s3", storeType)
	}
}

func validateS3Config() error {
	var missing []string

	if viper.GetString("vault.s3.bucket") == "" {
		missing = append(missing, "vault.s3.bucket")
	}

	hasAccessKey := viper.GetString("vault.s3.access_key_id") != ""
	hasSecretKey := viper.GetString("vault.s3.secret_access_key") != ""
	if hasAccessKey && !hasSecretKey {
		missing = append(missing, "vault.s3.secret_access_key")
	}
	if !hasAccessKey && hasSecretKey {
		missing = append(missing, "vault.s3.access_key_id")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
