package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore(t *testing.T) {
	store, err := NewFileSystemStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	testEnvelopeStoreImplementation(t, store)
}

func TestFileSystemStoreFromConfig(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileSystemStoreFromConfig(StoreConfig{
		Type:   StoreTypeFileSystem,
		Config: map[string]interface{}{"base_path": dir},
	})
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, string(StoreTypeFileSystem), store.GetType())

	_, err = NewFileSystemStoreFromConfig(StoreConfig{Type: StoreTypeFileSystem})
	assert.Error(t, err, "Missing base_path should fail")
}

func TestFileSystemStorePermissions(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSystemStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveEnvelope([]byte(`{"version":1}`)))

	info, err := os.Stat(filepath.Join(dir, envelopeFileName))
	require.NoError(t, err)
	assert.Equal(t, FilePermissions, info.Mode().Perm(), "Envelope file should be user-only")
}

func TestFileSystemStoreNoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileSystemStore(dir)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.SaveEnvelope([]byte(`{"version":1}`)))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "Only the envelope file should remain after saves")
}
