package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"

	"github.com/bvishnuvamsi/Secret-Manager/internal/misc"
)

var (
	// ErrInvalidSalt is returned before any derivation is attempted with a
	// salt shorter than the accepted minimum.
	ErrInvalidSalt = errors.New("crypto: salt must be at least 8 bytes")

	// ErrUnsupportedKDF is returned when the algorithm tag pinned in an
	// envelope is not one this build knows how to derive with.
	ErrUnsupportedKDF = errors.New("crypto: unsupported key derivation algorithm")

	// ErrAuthentication is returned when an AEAD open fails. A wrong key and
	// a tampered token are indistinguishable by design.
	ErrAuthentication = errors.New("crypto: authentication failed")
)

// DeriveKey turns a master password into a 32-byte symmetric key using the
// algorithm pinned by kdfID. The derivation is deterministic: identical
// inputs always produce identical key bytes.
//
// The returned key lives in a memguard locked buffer; callers own it and must
// Destroy it when the session ends. The password slice is not retained.
func DeriveKey(password, salt []byte, iterations int, kdfID string) (*memguard.LockedBuffer, error) {
	if len(salt) < misc.MinSaltSize {
		return nil, ErrInvalidSalt
	}
	if iterations <= 0 {
		return nil, fmt.Errorf("crypto: iterations must be positive, got %d", iterations)
	}

	var derived []byte
	switch kdfID {
	case misc.KDFPBKDF2SHA256:
		derived = pbkdf2.Key(password, salt, iterations, misc.KeyLen, sha256.New)
	case misc.KDFArgon2id:
		// The envelope iteration count doubles as the Argon2 time cost;
		// clamp so an envelope tuned for PBKDF2 cannot stall derivation.
		t := uint32(iterations)
		if t > 16 {
			t = 16
		}
		derived = argon2.IDKey(password, salt, t, misc.ArgonMemory, misc.ArgonThreads, misc.KeyLen)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKDF, kdfID)
	}

	// Protect the derived key immediately, then wipe the unprotected copy
	protectedKey := memguard.NewBufferFromBytes(derived)
	memguard.WipeBytes(derived)

	return protectedKey, nil
}

// EncryptValue encrypts value under key with ChaCha20-Poly1305 and returns
// nonce||ciphertext. A fresh random nonce is generated per call, so repeated
// encryption of the same plaintext never yields the same token.
func EncryptValue(value, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, value, nil)

	// Combine nonce and ciphertext
	encrypted := make([]byte, len(nonce)+len(ciphertext))
	copy(encrypted[:len(nonce)], nonce)
	copy(encrypted[len(nonce):], ciphertext)

	return encrypted, nil
}

// DecryptValue decrypts a nonce||ciphertext token produced by EncryptValue.
// Any bit flip, truncation, or wrong key fails with ErrAuthentication rather
// than returning corrupted plaintext.
func DecryptValue(encryptedData, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(encryptedData) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: token too short", ErrAuthentication)
	}

	nonceSize := aead.NonceSize()
	nonce := encryptedData[:nonceSize]
	ciphertext := encryptedData[nonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}

	return plaintext, nil
}

// NewSalt generates a fresh random salt for vault creation and re-keying.
func NewSalt() ([]byte, error) {
	salt := make([]byte, misc.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
