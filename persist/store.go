package persist

// Store defines the contract every persistence backend satisfies. All data
// handed to a backend is already encrypted by the vault layer; backends move
// opaque bytes and never see plaintext or key material.
//
// Two shapes of backend exist on top of this base:
//   - EnvelopeStore keeps the whole vault as one envelope blob (flat file,
//     object storage).
//   - RowStore keeps one independently encrypted ciphertext per service,
//     sharing a single vault-wide metadata record (relational storage).
type Store interface {

	// Ping tests the connectivity for remote backends.
	Ping() error

	// Close closes the store and releases any resources it holds.
	Close() error

	// GetType returns the backend identifier, e.g. "filesystem" or "sqlite".
	GetType() string
}

// EnvelopeStore persists a monolithic vault envelope as a single blob.
type EnvelopeStore interface {
	Store

	// LoadEnvelope returns the persisted envelope bytes. When no envelope
	// has ever been saved it returns an error satisfying
	// errors.Is(err, os.ErrNotExist) so callers can treat first-run as a
	// valid empty state rather than a failure.
	LoadEnvelope() ([]byte, error)

	// SaveEnvelope durably replaces the envelope. The write must be atomic
	// from the perspective of a subsequent LoadEnvelope: a crash mid-write
	// leaves either the old envelope or the new one, never a torn mix.
	SaveEnvelope(data []byte) error

	// EnvelopeExists reports whether an envelope has been saved.
	EnvelopeExists() (bool, error)
}

// RowStore persists per-service ciphertext rows plus one metadata record
// holding the vault-wide derivation parameters.
type RowStore interface {
	Store

	// LoadMeta returns the metadata record as key-value pairs (version,
	// kdf, iterations, salt). Absent metadata satisfies
	// errors.Is(err, os.ErrNotExist), meaning the vault is uninitialized.
	LoadMeta() (map[string]string, error)

	// SaveMeta durably replaces the metadata record.
	SaveMeta(meta map[string]string) error

	// MetaExists reports whether the metadata record has been written.
	MetaExists() (bool, error)

	// UpsertRow inserts or replaces the ciphertext for one service without
	// touching any other row.
	UpsertRow(service string, ciphertext []byte) error

	// GetRow returns the ciphertext for one service. An absent row satisfies
	// errors.Is(err, os.ErrNotExist).
	GetRow(service string) ([]byte, error)

	// DeleteRow removes the row for service. Deleting an absent row is not
	// an error at this layer; the vault tracks existence itself.
	DeleteRow(service string) error

	// ListRows returns the stored service names in lexical order.
	ListRows() ([]string, error)

	// LoadRows returns every service with its ciphertext.
	LoadRows() (map[string][]byte, error)

	// ReplaceAll atomically swaps the metadata record and the complete row
	// set in a single transaction. Used for re-keying: either every row
	// ends up under the new key or none does.
	ReplaceAll(meta map[string]string, rows map[string][]byte) error
}

// StoreConfig provides configuration for the different storage backends.
type StoreConfig struct {
	// Type specifies the storage backend to be used.
	Type StoreType `json:"type"`

	// Config contains backend-specific settings, e.g. "base_path" for the
	// filesystem store or "path" for the SQLite store.
	Config map[string]interface{} `json:"config"`
}

// StoreType represents the different types of storage backends that can be used.
type StoreType string

// Supported storage types.
const (
	// StoreTypeFileSystem keeps a monolithic envelope file on the local filesystem.
	StoreTypeFileSystem StoreType = "filesystem"

	// StoreTypeSQLite keeps per-service ciphertext rows in a local SQLite database.
	StoreTypeSQLite StoreType = "sqlite"

	// StoreTypeS3 keeps a monolithic envelope object in an S3-compatible bucket.
	StoreTypeS3 StoreType = "s3"
)
