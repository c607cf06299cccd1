package persist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vault.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	testRowStoreImplementation(t, store)
}

func TestSQLiteStoreFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.sqlite")

	store, err := NewSQLiteStoreFromConfig(StoreConfig{
		Type:   StoreTypeSQLite,
		Config: map[string]interface{}{"path": path},
	})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, string(StoreTypeSQLite), store.GetType())

	_, err = NewSQLiteStoreFromConfig(StoreConfig{Type: StoreTypeSQLite})
	assert.Error(t, err, "Missing path should fail")
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.sqlite")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	meta := map[string]string{"version": "1", "salt": "c2FsdA=="}
	require.NoError(t, store.SaveMeta(meta))
	require.NoError(t, store.UpsertRow("github", []byte("ct")))
	require.NoError(t, store.Close())

	// Reopening the same database must see the persisted state
	store, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.LoadMeta()
	require.NoError(t, err)
	assert.Equal(t, meta, loaded)

	rows, err := store.LoadRows()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"github": []byte("ct")}, rows)
}

func TestSQLiteStoreReplaceAllRollsBackAsUnit(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "vault.sqlite"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveMeta(map[string]string{"version": "1", "salt": "b2xk"}))
	require.NoError(t, store.UpsertRow("github", []byte("old-ct")))

	// Empty meta is rejected before the transaction begins; old state survives
	require.Error(t, store.ReplaceAll(nil, map[string][]byte{"github": []byte("new-ct")}))

	rows, err := store.LoadRows()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"github": []byte("old-ct")}, rows)
}
