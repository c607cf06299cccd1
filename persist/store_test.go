package persist

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Shared contract test for monolithic envelope backends.
func testEnvelopeStoreImplementation(t *testing.T, store EnvelopeStore) {
	envelope := []byte(`{"version":1,"kdf":"PBKDF2HMAC-SHA256","iterations":200000,"salt":"c2FsdHNhbHRzYWx0c2FsdA==","ciphertext":"bm9uY2VhbmRjaXBoZXJ0ZXh0"}`)
	updated := []byte(`{"version":1,"kdf":"PBKDF2HMAC-SHA256","iterations":200000,"salt":"c2FsdHNhbHRzYWx0c2FsdA==","ciphertext":"c2Vjb25kY2lwaGVydGV4dA=="}`)

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(), "Store should be reachable")
	})

	t.Run("GetType", func(t *testing.T) {
		assert.NotEmpty(t, store.GetType(), "Store type should not be empty")
	})

	t.Run("LoadAbsentEnvelope", func(t *testing.T) {
		_, err := store.LoadEnvelope()
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist),
			"Absent envelope should satisfy os.ErrNotExist, got %v", err)
	})

	t.Run("EnvelopeExistsBeforeSave", func(t *testing.T) {
		exists, err := store.EnvelopeExists()
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("SaveEnvelope", func(t *testing.T) {
		require.NoError(t, store.SaveEnvelope(envelope))
	})

	t.Run("EnvelopeExistsAfterSave", func(t *testing.T) {
		exists, err := store.EnvelopeExists()
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("LoadEnvelope", func(t *testing.T) {
		data, err := store.LoadEnvelope()
		require.NoError(t, err)
		assert.Equal(t, envelope, data)
	})

	t.Run("OverwriteEnvelope", func(t *testing.T) {
		require.NoError(t, store.SaveEnvelope(updated))
		data, err := store.LoadEnvelope()
		require.NoError(t, err)
		assert.Equal(t, updated, data, "Save should fully replace the envelope")
	})

	t.Run("RejectEmptyEnvelope", func(t *testing.T) {
		assert.Error(t, store.SaveEnvelope(nil))
	})
}

// Shared contract test for per-row backends.
func testRowStoreImplementation(t *testing.T, store RowStore) {
	meta := map[string]string{
		"version":    "1",
		"kdf":        "PBKDF2HMAC-SHA256",
		"iterations": "200000",
		"salt":       "c2FsdHNhbHRzYWx0c2FsdA==",
	}

	t.Run("LoadAbsentMeta", func(t *testing.T) {
		_, err := store.LoadMeta()
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist),
			"Absent meta should satisfy os.ErrNotExist, got %v", err)
	})

	t.Run("SaveMeta", func(t *testing.T) {
		require.NoError(t, store.SaveMeta(meta))
		exists, err := store.MetaExists()
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("LoadMeta", func(t *testing.T) {
		loaded, err := store.LoadMeta()
		require.NoError(t, err)
		assert.Equal(t, meta, loaded)
	})

	t.Run("UpsertAndLoadRows", func(t *testing.T) {
		require.NoError(t, store.UpsertRow("github", []byte("ct-github-1")))
		require.NoError(t, store.UpsertRow("openai", []byte("ct-openai-1")))
		// Last write wins
		require.NoError(t, store.UpsertRow("github", []byte("ct-github-2")))

		rows, err := store.LoadRows()
		require.NoError(t, err)
		assert.Equal(t, map[string][]byte{
			"github": []byte("ct-github-2"),
			"openai": []byte("ct-openai-1"),
		}, rows)
	})

	t.Run("GetRow", func(t *testing.T) {
		ct, err := store.GetRow("github")
		require.NoError(t, err)
		assert.Equal(t, []byte("ct-github-2"), ct)

		_, err = store.GetRow("no-such-service")
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist),
			"Absent row should satisfy os.ErrNotExist, got %v", err)
	})

	t.Run("ListRowsSorted", func(t *testing.T) {
		require.NoError(t, store.UpsertRow("aws", []byte("ct-aws")))
		services, err := store.ListRows()
		require.NoError(t, err)
		assert.Equal(t, []string{"aws", "github", "openai"}, services)
	})

	t.Run("DeleteRow", func(t *testing.T) {
		require.NoError(t, store.DeleteRow("aws"))
		services, err := store.ListRows()
		require.NoError(t, err)
		assert.Equal(t, []string{"github", "openai"}, services)

		// Idempotent at this layer
		assert.NoError(t, store.DeleteRow("aws"))
	})

	t.Run("ReplaceAll", func(t *testing.T) {
		newMeta := map[string]string{
			"version":    "1",
			"kdf":        "PBKDF2HMAC-SHA256",
			"iterations": "250000",
			"salt":       "bmV3c2FsdG5ld3NhbHQhIQ==",
		}
		newRows := map[string][]byte{
			"github": []byte("rekeyed-github"),
			"openai": []byte("rekeyed-openai"),
		}
		require.NoError(t, store.ReplaceAll(newMeta, newRows))

		loadedMeta, err := store.LoadMeta()
		require.NoError(t, err)
		assert.Equal(t, newMeta, loadedMeta)

		rows, err := store.LoadRows()
		require.NoError(t, err)
		assert.Equal(t, newRows, rows)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping())
	})
}
