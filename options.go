package vault

import (
	"fmt"

	"github.com/bvishnuvamsi/Secret-Manager/audit"
	"github.com/bvishnuvamsi/Secret-Manager/internal/misc"
)

// Options configures a Vault. Zero values are filled in by DefaultOptions;
// construct with DefaultOptions and override fields as needed.
//
// KDF and Iterations apply when creating a new vault and when re-keying an
// existing one. When unlocking, the parameters pinned in the persisted
// envelope always win, so an old vault keeps decrypting correctly even after
// the defaults change.
type Options struct {
	// KDF selects the key derivation algorithm for new vaults and re-keys.
	// Supported values are "PBKDF2HMAC-SHA256" and "ARGON2ID".
	KDF string

	// Iterations is the derivation work factor for new vaults and re-keys.
	// For PBKDF2 it is the iteration count; for Argon2id it maps to the
	// time cost.
	Iterations int

	// EnvPassphraseVar names an environment variable the CLI reads the
	// master password from before falling back to an interactive prompt.
	EnvPassphraseVar string

	// EnableMemoryLock attempts to lock the process address space into RAM
	// so derived keys cannot be swapped to disk. Failure to lock degrades
	// gracefully; it never prevents the vault from operating.
	EnableMemoryLock bool

	// Audit configures operation logging. Nil disables auditing.
	Audit *audit.Config
}

// DefaultOptions returns the recommended configuration: PBKDF2-HMAC-SHA256
// at 200,000 iterations, memory locking enabled, auditing disabled.
func DefaultOptions() Options {
	return Options{
		KDF:              misc.KDFPBKDF2SHA256,
		Iterations:       misc.DefaultIterations,
		EnvPassphraseVar: "VAULT_PASSPHRASE",
		EnableMemoryLock: true,
	}
}

// Validate checks the options for internal consistency.
func (o Options) Validate() error {
	switch o.KDF {
	case misc.KDFPBKDF2SHA256, misc.KDFArgon2id:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKDF, o.KDF)
	}
	if o.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", o.Iterations)
	}
	return nil
}
