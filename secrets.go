package vault

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/awnumar/memguard"

	"github.com/bvishnuvamsi/Secret-Manager/internal/crypto"
)

// StoreSecret encrypts apiKey under the session key and persists it for
// service, replacing any previous value. On a per-row backend only that
// service's row is written; on a monolithic backend the whole envelope is
// atomically replaced.
func (v *Vault) StoreSecret(service, apiKey string) error {
	if service == "" {
		return ErrInvalidService
	}
	if apiKey == "" {
		return ErrEmptyValue
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.storeSecretLocked(service, apiKey)
	v.logSecretOp("store_secret", service, err)
	return err
}

func (v *Vault) storeSecretLocked(service, apiKey string) error {
	key, err := v.openSession()
	if err != nil {
		return err
	}
	defer key.Destroy()

	if v.rowStore != nil {
		ciphertext, err := crypto.EncryptValue([]byte(apiKey), key.Bytes())
		if err != nil {
			return err
		}
		return v.rowStore.UpsertRow(service, ciphertext)
	}

	secrets, err := v.decryptPayload(key.Bytes())
	if err != nil {
		return err
	}
	secrets[service] = apiKey
	return v.persistPayload(secrets, key.Bytes())
}

// GetSecret decrypts and returns the API key stored for service. An unknown
// service yields ErrNotFound.
func (v *Vault) GetSecret(service string) (string, error) {
	if service == "" {
		return "", ErrInvalidService
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	value, err := v.getSecretLocked(service)
	v.logSecretOp("get_secret", service, err)
	return value, err
}

func (v *Vault) getSecretLocked(service string) (string, error) {
	key, err := v.openSession()
	if err != nil {
		return "", err
	}
	defer key.Destroy()

	if v.rowStore != nil {
		ciphertext, err := v.rowStore.GetRow(service)
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, service)
		}
		if err != nil {
			return "", err
		}
		plaintext, err := crypto.DecryptValue(ciphertext, key.Bytes())
		if err != nil {
			return "", err
		}
		value := string(plaintext)
		memguard.WipeBytes(plaintext)
		return value, nil
	}

	secrets, err := v.decryptPayload(key.Bytes())
	if err != nil {
		return "", err
	}
	value, ok := secrets[service]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	return value, nil
}

// ListServices returns the stored service names in lexical order without
// touching any key material.
func (v *Vault) ListServices() ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.sessionKey == nil {
		return nil, ErrNotUnlocked
	}

	if v.rowStore != nil {
		services, err := v.rowStore.ListRows()
		if err != nil {
			return nil, err
		}
		if services == nil {
			services = []string{}
		}
		return services, nil
	}

	key, err := v.openSession()
	if err != nil {
		return nil, err
	}
	defer key.Destroy()

	secrets, err := v.decryptPayload(key.Bytes())
	if err != nil {
		return nil, err
	}
	services := make([]string, 0, len(secrets))
	for service := range secrets {
		services = append(services, service)
	}
	sort.Strings(services)
	return services, nil
}

// DeleteSecret removes the secret for service. Deleting a service that has
// no stored secret fails with ErrNotFound and mutates nothing.
func (v *Vault) DeleteSecret(service string) error {
	if service == "" {
		return ErrInvalidService
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.deleteSecretLocked(service)
	v.logSecretOp("delete_secret", service, err)
	return err
}

func (v *Vault) deleteSecretLocked(service string) error {
	key, err := v.openSession()
	if err != nil {
		return err
	}
	defer key.Destroy()

	if v.rowStore != nil {
		if _, err := v.rowStore.GetRow(service); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, service)
		} else if err != nil {
			return err
		}
		return v.rowStore.DeleteRow(service)
	}

	secrets, err := v.decryptPayload(key.Bytes())
	if err != nil {
		return err
	}
	if _, ok := secrets[service]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, service)
	}
	delete(secrets, service)
	return v.persistPayload(secrets, key.Bytes())
}

func (v *Vault) logSecretOp(action, service string, opErr error) {
	metadata := map[string]interface{}{
		"service": service,
		"backend": v.store.GetType(),
	}
	if opErr != nil {
		metadata["error"] = opErr.Error()
	}
	_ = v.auditLog.Log(action, opErr == nil, metadata)
}
