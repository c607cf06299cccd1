// Package vault implements an encrypted local secret store for service API
// keys. All secrets are encrypted with a key derived from a master password
// that is never persisted; at rest the vault is a versioned envelope (or a
// set of per-service ciphertext rows) that pins the derivation parameters
// needed to reproduce the key on the next unlock.
//
// A vault is either locked or unlocked. Unlocking derives the session key
// and verifies it against the stored ciphertext; every secret operation
// requires the unlocked state and fails with ErrNotUnlocked otherwise.
// Locking discards the session key and nothing else.
//
// Persistence is pluggable through the persist package: a monolithic
// envelope on the local filesystem or in S3-compatible object storage, or
// per-service rows in a local SQLite database.
package vault

// State reports whether a vault currently holds a session key.
type State int

const (
	// Locked means no session key is present; secret operations fail.
	Locked State = iota

	// Unlocked means the session key has been derived and verified.
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// VaultService is the complete operation surface of a vault. *Vault is the
// canonical implementation; the interface exists so callers can wrap or
// substitute it in tests.
type VaultService interface {
	// Unlock derives the session key from password and verifies it against
	// the persisted vault. On a backend with no persisted vault it creates
	// a fresh, empty one under the configured derivation parameters. The
	// password slice is wiped before Unlock returns.
	Unlock(password []byte) error

	// Lock discards the session key. Locking a locked vault is a no-op.
	Lock() error

	// State reports whether the vault is locked or unlocked.
	State() State

	// StoreSecret encrypts apiKey and persists it under service, replacing
	// any previous value for that service.
	StoreSecret(service, apiKey string) error

	// GetSecret decrypts and returns the API key stored for service.
	GetSecret(service string) (string, error)

	// ListServices returns the stored service names in lexical order. The
	// list never exposes key material.
	ListServices() ([]string, error)

	// DeleteSecret removes the secret for service. An absent service
	// fails with ErrNotFound and nothing is mutated.
	DeleteSecret(service string) error

	// ChangeMasterPassword re-keys the vault: it verifies currentPassword,
	// derives a new key from newPassword with a fresh salt, re-encrypts
	// every secret, and persists the result atomically. Both password
	// slices are wiped before it returns.
	ChangeMasterPassword(currentPassword, newPassword []byte) error

	// Close locks the vault and releases the storage backend and audit
	// logger.
	Close() error
}
