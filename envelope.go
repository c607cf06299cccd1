package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/bvishnuvamsi/Secret-Manager/internal/misc"
)

// Params are the key derivation parameters pinned alongside the ciphertext.
// They are written when a vault is created or re-keyed and read back on
// every unlock, so the stored values always win over the configured
// defaults when reproducing the key.
type Params struct {
	Version    int
	KDF        string
	Iterations int
	Salt       []byte
}

// envelope is the persisted wire form for monolithic backends. Salt and
// Ciphertext are standard base64.
type envelope struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	Iterations int    `json:"iterations"`
	Salt       string `json:"salt"`
	Ciphertext string `json:"ciphertext"`
}

func validateParams(p Params) error {
	if p.Version != misc.EnvelopeVersion {
		return fmt.Errorf("%w: unknown version %d", ErrMalformedEnvelope, p.Version)
	}
	switch p.KDF {
	case misc.KDFPBKDF2SHA256, misc.KDFArgon2id:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKDF, p.KDF)
	}
	if p.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive", ErrMalformedEnvelope)
	}
	if len(p.Salt) < misc.MinSaltSize {
		return ErrInvalidSalt
	}
	return nil
}

// encodeEnvelope serializes derivation parameters and ciphertext into the
// persisted envelope form.
func encodeEnvelope(p Params, ciphertext []byte) ([]byte, error) {
	if err := validateParams(p); err != nil {
		return nil, err
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("envelope ciphertext cannot be empty")
	}

	env := envelope{
		Version:    p.Version,
		KDF:        p.KDF,
		Iterations: p.Iterations,
		Salt:       base64.StdEncoding.EncodeToString(p.Salt),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// parseEnvelope decodes and validates a persisted envelope. It fails closed:
// any structural problem is reported as ErrMalformedEnvelope (or a more
// specific sentinel) and no partial result is returned.
func parseEnvelope(data []byte) (Params, []byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Params{}, nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return Params{}, nil, fmt.Errorf("%w: bad salt encoding", ErrMalformedEnvelope)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return Params{}, nil, fmt.Errorf("%w: bad ciphertext encoding", ErrMalformedEnvelope)
	}
	if len(ciphertext) == 0 {
		return Params{}, nil, fmt.Errorf("%w: missing ciphertext", ErrMalformedEnvelope)
	}

	p := Params{
		Version:    env.Version,
		KDF:        env.KDF,
		Iterations: env.Iterations,
		Salt:       salt,
	}
	if err := validateParams(p); err != nil {
		return Params{}, nil, err
	}
	return p, ciphertext, nil
}

// Per-row backends persist the same parameters as a key-value metadata
// record, plus a "check" token: a short known plaintext encrypted under the
// vault key so a wrong password is detected on unlock even when the vault
// holds no secrets yet.

func metaFromParams(p Params, check []byte) map[string]string {
	return map[string]string{
		"version":    strconv.Itoa(p.Version),
		"kdf":        p.KDF,
		"iterations": strconv.Itoa(p.Iterations),
		"salt":       base64.StdEncoding.EncodeToString(p.Salt),
		"check":      base64.StdEncoding.EncodeToString(check),
	}
}

func paramsFromMeta(meta map[string]string) (Params, []byte, error) {
	version, err := strconv.Atoi(meta["version"])
	if err != nil {
		return Params{}, nil, fmt.Errorf("%w: bad version", ErrMalformedEnvelope)
	}
	iterations, err := strconv.Atoi(meta["iterations"])
	if err != nil {
		return Params{}, nil, fmt.Errorf("%w: bad iterations", ErrMalformedEnvelope)
	}
	salt, err := base64.StdEncoding.DecodeString(meta["salt"])
	if err != nil {
		return Params{}, nil, fmt.Errorf("%w: bad salt encoding", ErrMalformedEnvelope)
	}
	check, err := base64.StdEncoding.DecodeString(meta["check"])
	if err != nil || len(check) == 0 {
		return Params{}, nil, fmt.Errorf("%w: missing check token", ErrMalformedEnvelope)
	}

	p := Params{
		Version:    version,
		KDF:        meta["kdf"],
		Iterations: iterations,
		Salt:       salt,
	}
	if err := validateParams(p); err != nil {
		return Params{}, nil, err
	}
	return p, check, nil
}
