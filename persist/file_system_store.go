package persist

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	FilePermissions os.FileMode = 0600
	DirPermissions  os.FileMode = 0700

	envelopeFileName = "vault.enc.json"
)

// FileSystemStore implements EnvelopeStore on the local filesystem. The whole
// vault lives in a single envelope file, rewritten atomically on every save.
type FileSystemStore struct {
	basePath     string
	envelopePath string // basePath/vault.enc.json
}

// NewFileSystemStore initializes and returns a new instance of FileSystemStore
func NewFileSystemStore(basePath string) (*FileSystemStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	if err := os.MkdirAll(basePath, DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create vault directory %s: %w", basePath, err)
	}

	return &FileSystemStore{
		basePath:     basePath,
		envelopePath: filepath.Join(basePath, envelopeFileName),
	}, nil
}

// NewFileSystemStoreFromConfig creates a FileSystemStore from StoreConfig
func NewFileSystemStoreFromConfig(config StoreConfig) (*FileSystemStore, error) {
	basePath, ok := config.Config["base_path"].(string)
	if !ok {
		return nil, fmt.Errorf("base_path is required for filesystem store")
	}

	return NewFileSystemStore(basePath)
}

// LoadEnvelope reads the envelope file. A missing file is reported as
// os.ErrNotExist so the vault can treat it as first-run.
func (fs *FileSystemStore) LoadEnvelope() ([]byte, error) {
	data, err := os.ReadFile(fs.envelopePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load envelope: %w", err)
	}
	return data, nil
}

// SaveEnvelope writes the envelope with write-to-temp-then-rename so a crash
// mid-write never leaves a torn file in place.
func (fs *FileSystemStore) SaveEnvelope(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("envelope cannot be empty")
	}

	if err := os.MkdirAll(fs.basePath, DirPermissions); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	return writeSecureFile(fs.envelopePath, data, FilePermissions)
}

func (fs *FileSystemStore) EnvelopeExists() (bool, error) {
	return fileExists(fs.envelopePath)
}

func (fs *FileSystemStore) GetType() string {
	return string(StoreTypeFileSystem)
}

// Health and utilities
func (fs *FileSystemStore) Ping() error {
	_, err := os.Stat(fs.basePath)
	return err
}

func (fs *FileSystemStore) Close() error {
	return nil
}

// Helper functions
func writeSecureFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err = tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
