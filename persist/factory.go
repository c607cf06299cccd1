package persist

import "fmt"

// NewStoreFromConfig creates the appropriate store implementation based on
// the configuration type.
func NewStoreFromConfig(config StoreConfig) (Store, error) {
	switch config.Type {
	case StoreTypeFileSystem:
		return NewFileSystemStoreFromConfig(config)
	case StoreTypeSQLite:
		return NewSQLiteStoreFromConfig(config)
	case StoreTypeS3:
		return NewS3StoreFromConfig(config)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
