package vault

import (
	"errors"

	"github.com/bvishnuvamsi/Secret-Manager/internal/crypto"
)

var (
	// ErrNotUnlocked is returned when a secret operation is attempted on a
	// vault that has not been unlocked, or has been locked again.
	ErrNotUnlocked = errors.New("vault: not unlocked")

	// ErrNotFound is returned when no secret is stored for the requested
	// service.
	ErrNotFound = errors.New("vault: service not found")

	// ErrMalformedEnvelope is returned when persisted vault data cannot be
	// parsed. The vault refuses to proceed with partial state: a corrupt
	// envelope never yields secrets and never gets overwritten implicitly.
	ErrMalformedEnvelope = errors.New("vault: malformed envelope")

	// ErrEmptyPassword is returned when an empty master password is supplied
	// to Unlock or ChangeMasterPassword.
	ErrEmptyPassword = errors.New("vault: master password cannot be empty")

	// ErrInvalidService is returned when a service name is empty.
	ErrInvalidService = errors.New("vault: service name cannot be empty")

	// ErrEmptyValue is returned when an empty API key is stored.
	ErrEmptyValue = errors.New("vault: secret value cannot be empty")

	// ErrAuthentication indicates a wrong master password or tampered
	// ciphertext; the two are intentionally indistinguishable.
	ErrAuthentication = crypto.ErrAuthentication

	// ErrInvalidSalt indicates a persisted salt shorter than the minimum.
	ErrInvalidSalt = crypto.ErrInvalidSalt

	// ErrUnsupportedKDF indicates an envelope pinned to a derivation
	// algorithm this build does not implement.
	ErrUnsupportedKDF = crypto.ErrUnsupportedKDF
)
