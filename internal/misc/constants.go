package misc

const (
	// EnvelopeVersion defines the current version of the persisted envelope format
	EnvelopeVersion = 1

	// KDFPBKDF2SHA256 is the default key derivation algorithm tag stored in envelopes
	KDFPBKDF2SHA256 = "PBKDF2HMAC-SHA256"

	// KDFArgon2id is the alternative, memory-hard derivation algorithm tag
	KDFArgon2id = "ARGON2ID"

	// DefaultIterations is the PBKDF2 work factor used for new vaults and re-keys
	DefaultIterations = 200_000

	// Argon2id parameters; the envelope iteration count maps to the time cost
	ArgonMemory  uint32 = 128 * 1024
	ArgonThreads uint8  = 4

	// KeyLen is the derived key length, fixed by the ChaCha20-Poly1305 cipher
	KeyLen = 32

	// SaltSize is the salt length generated for new vaults and re-keys
	SaltSize = 16

	// MinSaltSize is the shortest salt accepted when deriving from an existing envelope
	MinSaltSize = 8

	FilePermissions = 0600 // user read + write
)
