package vault

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"github.com/bvishnuvamsi/Secret-Manager/internal/misc"
)

func testParams() Params {
	return Params{
		Version:    misc.EnvelopeVersion,
		KDF:        misc.KDFPBKDF2SHA256,
		Iterations: misc.DefaultIterations,
		Salt:       []byte("0123456789abcdef"),
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	params := testParams()
	ciphertext := []byte("nonce-and-ciphertext-bytes")

	data, err := encodeEnvelope(params, ciphertext)
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}

	gotParams, gotCiphertext, err := parseEnvelope(data)
	if err != nil {
		t.Fatalf("parseEnvelope failed: %v", err)
	}
	if gotParams.Version != params.Version {
		t.Errorf("version = %d, want %d", gotParams.Version, params.Version)
	}
	if gotParams.KDF != params.KDF {
		t.Errorf("kdf = %q, want %q", gotParams.KDF, params.KDF)
	}
	if gotParams.Iterations != params.Iterations {
		t.Errorf("iterations = %d, want %d", gotParams.Iterations, params.Iterations)
	}
	if !bytes.Equal(gotParams.Salt, params.Salt) {
		t.Errorf("salt = %x, want %x", gotParams.Salt, params.Salt)
	}
	if !bytes.Equal(gotCiphertext, ciphertext) {
		t.Errorf("ciphertext = %x, want %x", gotCiphertext, ciphertext)
	}
}

// The wire form is stable JSON with base64 binary fields; a vault written
// today must parse under any future build that still supports version 1.
func TestEnvelopeWireFormat(t *testing.T) {
	params := testParams()
	data, err := encodeEnvelope(params, []byte("ct"))
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("envelope is not valid JSON: %v", err)
	}

	if v, ok := fields["version"].(float64); !ok || int(v) != 1 {
		t.Errorf("version field = %v, want 1", fields["version"])
	}
	if kdf, _ := fields["kdf"].(string); kdf != "PBKDF2HMAC-SHA256" {
		t.Errorf("kdf field = %v, want PBKDF2HMAC-SHA256", fields["kdf"])
	}
	if v, ok := fields["iterations"].(float64); !ok || int(v) != misc.DefaultIterations {
		t.Errorf("iterations field = %v, want %d", fields["iterations"], misc.DefaultIterations)
	}
	salt, err := base64.StdEncoding.DecodeString(fields["salt"].(string))
	if err != nil || !bytes.Equal(salt, params.Salt) {
		t.Errorf("salt field does not round-trip: %v", fields["salt"])
	}
	ct, err := base64.StdEncoding.DecodeString(fields["ciphertext"].(string))
	if err != nil || !bytes.Equal(ct, []byte("ct")) {
		t.Errorf("ciphertext field does not round-trip: %v", fields["ciphertext"])
	}
}

func TestParseEnvelopeFailsClosed(t *testing.T) {
	valid, err := encodeEnvelope(testParams(), []byte("ciphertext"))
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}

	mutate := func(field string, value interface{}) []byte {
		var fields map[string]interface{}
		if err := json.Unmarshal(valid, &fields); err != nil {
			t.Fatalf("failed to decode valid envelope: %v", err)
		}
		fields[field] = value
		out, err := json.Marshal(fields)
		if err != nil {
			t.Fatalf("failed to re-encode envelope: %v", err)
		}
		return out
	}

	cases := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"not JSON", []byte("definitely not json"), ErrMalformedEnvelope},
		{"truncated JSON", valid[:len(valid)/2], ErrMalformedEnvelope},
		{"unknown version", mutate("version", 99), ErrMalformedEnvelope},
		{"unknown kdf", mutate("kdf", "ROT13"), ErrUnsupportedKDF},
		{"zero iterations", mutate("iterations", 0), ErrMalformedEnvelope},
		{"short salt", mutate("salt", base64.StdEncoding.EncodeToString([]byte("tiny"))), ErrInvalidSalt},
		{"bad salt encoding", mutate("salt", "!!not-base64!!"), ErrMalformedEnvelope},
		{"bad ciphertext encoding", mutate("ciphertext", "!!not-base64!!"), ErrMalformedEnvelope},
		{"empty ciphertext", mutate("ciphertext", ""), ErrMalformedEnvelope},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseEnvelope(tc.data)
			if err == nil {
				t.Fatal("parseEnvelope accepted malformed data")
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestMetaRoundTrip(t *testing.T) {
	params := testParams()
	check := []byte("encrypted-check-token")

	meta := metaFromParams(params, check)
	gotParams, gotCheck, err := paramsFromMeta(meta)
	if err != nil {
		t.Fatalf("paramsFromMeta failed: %v", err)
	}
	if gotParams.Version != params.Version || gotParams.KDF != params.KDF ||
		gotParams.Iterations != params.Iterations || !bytes.Equal(gotParams.Salt, params.Salt) {
		t.Errorf("params do not round-trip: got %+v, want %+v", gotParams, params)
	}
	if !bytes.Equal(gotCheck, check) {
		t.Errorf("check token does not round-trip")
	}
}

func TestParamsFromMetaRejectsIncomplete(t *testing.T) {
	meta := metaFromParams(testParams(), []byte("check"))

	cases := []struct {
		missing string
		wantErr error
	}{
		{"version", ErrMalformedEnvelope},
		{"kdf", ErrUnsupportedKDF},
		{"iterations", ErrMalformedEnvelope},
		{"salt", ErrInvalidSalt},
		{"check", ErrMalformedEnvelope},
	}
	for _, tc := range cases {
		t.Run("missing "+tc.missing, func(t *testing.T) {
			broken := make(map[string]string, len(meta))
			for k, v := range meta {
				broken[k] = v
			}
			delete(broken, tc.missing)

			if _, _, err := paramsFromMeta(broken); !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
