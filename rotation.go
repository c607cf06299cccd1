package vault

import (
	"crypto/subtle"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/bvishnuvamsi/Secret-Manager/internal/crypto"
	"github.com/bvishnuvamsi/Secret-Manager/internal/misc"
)

// ChangeMasterPassword re-keys the vault. It verifies currentPassword
// against the active session key, derives a new key from newPassword with a
// fresh salt under the configured KDF and work factor, re-encrypts every
// secret, and persists the result in one atomic replacement.
//
// The swap is all-or-nothing: if anything fails before the backend write
// commits, the vault keeps its previous salt, ciphertexts, and session key,
// and the old password continues to work. After a successful swap the old
// password can never decrypt the vault again.
//
// Both password slices are wiped before the method returns. Re-keying also
// upgrades the derivation parameters, so a vault created under an older
// work factor adopts the current configuration here.
func (v *Vault) ChangeMasterPassword(currentPassword, newPassword []byte) error {
	defer memguard.WipeBytes(currentPassword)
	defer memguard.WipeBytes(newPassword)

	if len(currentPassword) == 0 || len(newPassword) == 0 {
		return ErrEmptyPassword
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	err := v.rekeyLocked(currentPassword, newPassword)
	metadata := map[string]interface{}{
		"backend": v.store.GetType(),
	}
	if err != nil {
		metadata["error"] = err.Error()
	}
	_ = v.auditLog.Log("change_master_password", err == nil, metadata)
	return err
}

func (v *Vault) rekeyLocked(currentPassword, newPassword []byte) error {
	sessionKey, err := v.openSession()
	if err != nil {
		return err
	}
	defer sessionKey.Destroy()

	// Verify the caller knows the current password by re-deriving under the
	// active parameters and comparing against the session key. This also
	// covers a vault with no secrets to test-decrypt.
	derived, err := crypto.DeriveKey(currentPassword, v.params.Salt, v.params.Iterations, v.params.KDF)
	if err != nil {
		return err
	}
	match := subtle.ConstantTimeCompare(derived.Bytes(), sessionKey.Bytes()) == 1
	derived.Destroy()
	if !match {
		return ErrAuthentication
	}

	salt, err := crypto.NewSalt()
	if err != nil {
		return err
	}
	newParams := Params{
		Version:    misc.EnvelopeVersion,
		KDF:        v.options.KDF,
		Iterations: v.options.Iterations,
		Salt:       salt,
	}
	newKey, err := crypto.DeriveKey(newPassword, newParams.Salt, newParams.Iterations, newParams.KDF)
	if err != nil {
		return err
	}

	if v.rowStore != nil {
		err = v.rekeyRows(sessionKey.Bytes(), newKey.Bytes(), newParams)
	} else {
		err = v.rekeyEnvelope(sessionKey.Bytes(), newKey.Bytes(), newParams)
	}
	if err != nil {
		newKey.Destroy()
		return err
	}

	v.params = newParams
	v.sessionKey = newKey.Seal()
	return nil
}

// rekeyEnvelope decrypts the monolithic payload under the old key and
// replaces the envelope under the new one. SaveEnvelope is atomic, so a
// crash leaves either the old or the new envelope intact.
func (v *Vault) rekeyEnvelope(oldKey, newKey []byte, newParams Params) error {
	plaintext, err := crypto.DecryptValue(v.payload, oldKey)
	if err != nil {
		return err
	}
	defer memguard.WipeBytes(plaintext)

	ciphertext, err := crypto.EncryptValue(plaintext, newKey)
	if err != nil {
		return err
	}
	data, err := encodeEnvelope(newParams, ciphertext)
	if err != nil {
		return err
	}
	if err = v.envStore.SaveEnvelope(data); err != nil {
		return fmt.Errorf("failed to persist re-keyed vault: %w", err)
	}

	v.payload = ciphertext
	return nil
}

// rekeyRows re-encrypts every row under the new key and swaps metadata and
// rows in a single backend transaction.
func (v *Vault) rekeyRows(oldKey, newKey []byte, newParams Params) error {
	rows, err := v.rowStore.LoadRows()
	if err != nil {
		return err
	}

	newRows := make(map[string][]byte, len(rows))
	for service, ciphertext := range rows {
		plaintext, err := crypto.DecryptValue(ciphertext, oldKey)
		if err != nil {
			return fmt.Errorf("failed to re-key %s: %w", service, err)
		}
		reEncrypted, err := crypto.EncryptValue(plaintext, newKey)
		memguard.WipeBytes(plaintext)
		if err != nil {
			return err
		}
		newRows[service] = reEncrypted
	}

	check, err := crypto.EncryptValue([]byte(checkPlaintext), newKey)
	if err != nil {
		return err
	}
	if err = v.rowStore.ReplaceAll(metaFromParams(newParams, check), newRows); err != nil {
		return fmt.Errorf("failed to persist re-keyed vault: %w", err)
	}
	return nil
}
