package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/bvishnuvamsi/Secret-Manager/audit"
	"github.com/bvishnuvamsi/Secret-Manager/internal/crypto"
	"github.com/bvishnuvamsi/Secret-Manager/internal/mem"
	"github.com/bvishnuvamsi/Secret-Manager/internal/misc"
	"github.com/bvishnuvamsi/Secret-Manager/persist"
)

// checkPlaintext is the known value encrypted into the per-row metadata so
// an unlock against an empty vault can still detect a wrong password.
const checkPlaintext = "vault-check-v1"

var _ VaultService = (*Vault)(nil)

// Vault is the canonical VaultService implementation. It is safe for
// concurrent use by multiple goroutines.
//
// The derived session key never exists as a plain byte slice at rest: it is
// sealed in a memguard enclave and opened only for the duration of a single
// operation. Plaintext secrets exist in memory only while an operation needs
// them.
type Vault struct {
	mu      sync.RWMutex
	options Options
	store   persist.Store

	// Exactly one of these is non-nil, selecting the persistence mode.
	envStore persist.EnvelopeStore
	rowStore persist.RowStore

	sessionKey *memguard.Enclave
	params     Params

	// Current envelope ciphertext, monolithic mode only. Kept so secret
	// operations do not re-read the backend on every call.
	payload []byte

	auditLog   audit.Logger
	protection mem.ProtectionLevel
}

// New creates a Vault with a storage backend built from config.
func New(options Options, config persist.StoreConfig) (*Vault, error) {
	store, err := persist.NewStoreFromConfig(config)
	if err != nil {
		return nil, err
	}
	v, err := NewWithStore(options, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return v, nil
}

// NewWithStore creates a Vault on an already-constructed storage backend.
// The vault takes ownership of the store and closes it on Close.
func NewWithStore(options Options, store persist.Store) (*Vault, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	v := &Vault{
		options: options,
		store:   store,
	}
	switch s := store.(type) {
	case persist.EnvelopeStore:
		v.envStore = s
	case persist.RowStore:
		v.rowStore = s
	default:
		return nil, fmt.Errorf("store %T implements neither EnvelopeStore nor RowStore", store)
	}

	logger, err := audit.NewLogger(options.Audit)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit logger: %w", err)
	}
	v.auditLog = logger

	if options.EnableMemoryLock {
		// Best effort: unprivileged processes often cannot mlock
		level, err := mem.Lock()
		if err != nil {
			level = mem.ProtectionNone
		}
		v.protection = level
	}

	return v, nil
}

// MemoryProtection reports how much of the process memory could be locked
// against swapping.
func (v *Vault) MemoryProtection() mem.ProtectionLevel {
	return v.protection
}

// State reports whether the vault currently holds a session key.
func (v *Vault) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.sessionKey != nil {
		return Unlocked
	}
	return Locked
}

// Unlock derives the session key from password and verifies it against the
// persisted vault. A backend with no persisted vault is treated as first
// run: a fresh empty vault is created under the configured parameters.
// Malformed persisted data fails closed and is never overwritten.
//
// The password slice is wiped before Unlock returns, success or not. A
// failed unlock leaves the vault locked.
func (v *Vault) Unlock(password []byte) error {
	defer memguard.WipeBytes(password)

	if len(password) == 0 {
		return ErrEmptyPassword
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	var err error
	if v.envStore != nil {
		err = v.unlockEnvelope(password)
	} else {
		err = v.unlockRows(password)
	}
	if err != nil {
		_ = v.auditLog.Log("unlock", false, map[string]interface{}{
			"backend": v.store.GetType(),
			"error":   err.Error(),
		})
		return err
	}

	_ = v.auditLog.Log("unlock", true, map[string]interface{}{
		"backend": v.store.GetType(),
	})
	return nil
}

func (v *Vault) unlockEnvelope(password []byte) error {
	data, err := v.envStore.LoadEnvelope()
	if errors.Is(err, os.ErrNotExist) {
		return v.initEnvelope(password)
	}
	if err != nil {
		return fmt.Errorf("failed to load vault: %w", err)
	}

	params, ciphertext, err := parseEnvelope(data)
	if err != nil {
		return err
	}

	key, err := crypto.DeriveKey(password, params.Salt, params.Iterations, params.KDF)
	if err != nil {
		return err
	}

	// Decrypting the payload is the password check
	plaintext, err := crypto.DecryptValue(ciphertext, key.Bytes())
	if err != nil {
		key.Destroy()
		return err
	}
	memguard.WipeBytes(plaintext)

	v.params = params
	v.payload = ciphertext
	v.sessionKey = key.Seal()
	return nil
}

// initEnvelope creates a fresh empty vault on first run.
func (v *Vault) initEnvelope(password []byte) error {
	params, key, err := v.newParams(password)
	if err != nil {
		return err
	}

	ciphertext, err := crypto.EncryptValue([]byte("{}"), key.Bytes())
	if err != nil {
		key.Destroy()
		return err
	}
	data, err := encodeEnvelope(params, ciphertext)
	if err != nil {
		key.Destroy()
		return err
	}
	if err = v.envStore.SaveEnvelope(data); err != nil {
		key.Destroy()
		return fmt.Errorf("failed to persist new vault: %w", err)
	}

	v.params = params
	v.payload = ciphertext
	v.sessionKey = key.Seal()
	return nil
}

func (v *Vault) unlockRows(password []byte) error {
	meta, err := v.rowStore.LoadMeta()
	if errors.Is(err, os.ErrNotExist) {
		return v.initRows(password)
	}
	if err != nil {
		return fmt.Errorf("failed to load vault metadata: %w", err)
	}

	params, check, err := paramsFromMeta(meta)
	if err != nil {
		return err
	}

	key, err := crypto.DeriveKey(password, params.Salt, params.Iterations, params.KDF)
	if err != nil {
		return err
	}

	plaintext, err := crypto.DecryptValue(check, key.Bytes())
	if err != nil {
		key.Destroy()
		return err
	}
	memguard.WipeBytes(plaintext)

	v.params = params
	v.sessionKey = key.Seal()
	return nil
}

func (v *Vault) initRows(password []byte) error {
	params, key, err := v.newParams(password)
	if err != nil {
		return err
	}

	check, err := crypto.EncryptValue([]byte(checkPlaintext), key.Bytes())
	if err != nil {
		key.Destroy()
		return err
	}
	if err = v.rowStore.SaveMeta(metaFromParams(params, check)); err != nil {
		key.Destroy()
		return fmt.Errorf("failed to persist new vault: %w", err)
	}

	v.params = params
	v.sessionKey = key.Seal()
	return nil
}

// newParams generates fresh derivation parameters from the configured
// options and derives the corresponding key.
func (v *Vault) newParams(password []byte) (Params, *memguard.LockedBuffer, error) {
	salt, err := crypto.NewSalt()
	if err != nil {
		return Params{}, nil, err
	}
	params := Params{
		Version:    misc.EnvelopeVersion,
		KDF:        v.options.KDF,
		Iterations: v.options.Iterations,
		Salt:       salt,
	}
	key, err := crypto.DeriveKey(password, params.Salt, params.Iterations, params.KDF)
	if err != nil {
		return Params{}, nil, err
	}
	return params, key, nil
}

// Lock discards the session key. Persisted data is untouched; locking a
// locked vault is a no-op.
func (v *Vault) Lock() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.dropSession()
	_ = v.auditLog.Log("lock", true, map[string]interface{}{
		"backend": v.store.GetType(),
	})
	return nil
}

func (v *Vault) dropSession() {
	v.sessionKey = nil
	v.payload = nil
	v.params = Params{}
}

// Close locks the vault and releases the storage backend and audit logger.
func (v *Vault) Close() error {
	v.mu.Lock()
	v.dropSession()
	v.mu.Unlock()

	var errs []error
	if err := v.auditLog.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := v.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if v.options.EnableMemoryLock && v.protection != mem.ProtectionNone {
		_ = mem.Unlock()
	}
	return errors.Join(errs...)
}

// openSession opens the session key enclave for one operation. Callers must
// Destroy the returned buffer. Holding at least a read lock is assumed.
func (v *Vault) openSession() (*memguard.LockedBuffer, error) {
	if v.sessionKey == nil {
		return nil, ErrNotUnlocked
	}
	key, err := v.sessionKey.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open session key: %w", err)
	}
	return key, nil
}

// decryptPayload opens the monolithic payload into a service→key map.
func (v *Vault) decryptPayload(key []byte) (map[string]string, error) {
	plaintext, err := crypto.DecryptValue(v.payload, key)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(plaintext)

	secrets := make(map[string]string)
	if err = json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("%w: bad payload", ErrMalformedEnvelope)
	}
	return secrets, nil
}

// persistPayload encrypts the secret map and durably replaces the envelope.
// The in-memory ciphertext is updated only after the backend write succeeds.
func (v *Vault) persistPayload(secrets map[string]string, key []byte) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	defer memguard.WipeBytes(plaintext)

	ciphertext, err := crypto.EncryptValue(plaintext, key)
	if err != nil {
		return err
	}
	data, err := encodeEnvelope(v.params, ciphertext)
	if err != nil {
		return err
	}
	if err = v.envStore.SaveEnvelope(data); err != nil {
		return fmt.Errorf("failed to persist vault: %w", err)
	}

	v.payload = ciphertext
	return nil
}
