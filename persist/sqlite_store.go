package persist

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements RowStore on a local SQLite database. Derivation
// parameters live in a key-value meta table; each service has its own
// independently encrypted ciphertext row, so storing or deleting one secret
// touches one row instead of rewriting the whole vault.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the vault database at path and ensures
// the required tables exist. The database is configured for a single local
// writer: write-ahead logging with relaxed-but-safe synchronization.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Reliability pragmas for a single-writer local database
	if _, err = db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err = s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// The database file carries ciphertext only, but keep it private anyway
	if err = os.Chmod(path, FilePermissions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set database permissions: %w", err)
	}

	return s, nil
}

// NewSQLiteStoreFromConfig creates a SQLiteStore from StoreConfig
func NewSQLiteStoreFromConfig(config StoreConfig) (*SQLiteStore, error) {
	path, ok := config.Config["path"].(string)
	if !ok {
		return nil, fmt.Errorf("path is required for sqlite store")
	}

	return NewSQLiteStore(path)
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS secrets (
			service    TEXT PRIMARY KEY,
			ciphertext BLOB NOT NULL
		)
	`)
	return err
}

// LoadMeta returns the metadata record. An empty meta table means the vault
// has never been initialized, reported as os.ErrNotExist.
func (s *SQLiteStore) LoadMeta() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("failed to read meta table: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err = rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan meta row: %w", err)
		}
		meta[k] = v
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meta rows: %w", err)
	}

	if len(meta) == 0 {
		return nil, fmt.Errorf("vault metadata: %w", os.ErrNotExist)
	}
	return meta, nil
}

// SaveMeta replaces the metadata record in a single transaction.
func (s *SQLiteStore) SaveMeta(meta map[string]string) error {
	if len(meta) == 0 {
		return fmt.Errorf("metadata cannot be empty")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err = upsertMeta(tx, meta); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metadata: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MetaExists() (bool, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM meta").Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check meta table: %w", err)
	}
	return count > 0, nil
}

// UpsertRow inserts or replaces one service's ciphertext.
func (s *SQLiteStore) UpsertRow(service string, ciphertext []byte) error {
	if service == "" {
		return fmt.Errorf("service is required")
	}
	if len(ciphertext) == 0 {
		return fmt.Errorf("ciphertext cannot be empty")
	}

	_, err := s.db.Exec(`
		INSERT INTO secrets (service, ciphertext) VALUES (?, ?)
		ON CONFLICT(service) DO UPDATE SET ciphertext = excluded.ciphertext
	`, service, ciphertext)
	if err != nil {
		return fmt.Errorf("failed to upsert row for %s: %w", service, err)
	}
	return nil
}

// GetRow returns one service's ciphertext, or os.ErrNotExist when the
// service has no stored secret.
func (s *SQLiteStore) GetRow(service string) ([]byte, error) {
	var ct []byte
	err := s.db.QueryRow("SELECT ciphertext FROM secrets WHERE service = ?", service).Scan(&ct)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("secret for %s: %w", service, os.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read row for %s: %w", service, err)
	}
	return ct, nil
}

func (s *SQLiteStore) DeleteRow(service string) error {
	if _, err := s.db.Exec("DELETE FROM secrets WHERE service = ?", service); err != nil {
		return fmt.Errorf("failed to delete row for %s: %w", service, err)
	}
	return nil
}

func (s *SQLiteStore) ListRows() ([]string, error) {
	rows, err := s.db.Query("SELECT service FROM secrets ORDER BY service ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list rows: %w", err)
	}
	defer rows.Close()

	var services []string
	for rows.Next() {
		var svc string
		if err = rows.Scan(&svc); err != nil {
			return nil, fmt.Errorf("failed to scan service row: %w", err)
		}
		services = append(services, svc)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate service rows: %w", err)
	}
	return services, nil
}

func (s *SQLiteStore) LoadRows() (map[string][]byte, error) {
	rows, err := s.db.Query("SELECT service, ciphertext FROM secrets")
	if err != nil {
		return nil, fmt.Errorf("failed to load rows: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]byte)
	for rows.Next() {
		var svc string
		var ct []byte
		if err = rows.Scan(&svc, &ct); err != nil {
			return nil, fmt.Errorf("failed to scan secret row: %w", err)
		}
		result[svc] = ct
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate secret rows: %w", err)
	}
	return result, nil
}

// ReplaceAll swaps the metadata record and the entire row set in one
// transaction. This is the re-key path: a failure at any point rolls back to
// the previous salt and ciphertexts, so no mix of old-key and new-key rows
// can ever be observed.
func (s *SQLiteStore) ReplaceAll(meta map[string]string, rowSet map[string][]byte) error {
	if len(meta) == 0 {
		return fmt.Errorf("metadata cannot be empty")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.Exec("DELETE FROM meta"); err != nil {
		return fmt.Errorf("failed to clear meta table: %w", err)
	}
	if err = upsertMeta(tx, meta); err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM secrets"); err != nil {
		return fmt.Errorf("failed to clear secrets table: %w", err)
	}
	// Insert in deterministic order so failures are reproducible
	services := make([]string, 0, len(rowSet))
	for svc := range rowSet {
		services = append(services, svc)
	}
	sort.Strings(services)
	for _, svc := range services {
		if _, err = tx.Exec("INSERT INTO secrets (service, ciphertext) VALUES (?, ?)", svc, rowSet[svc]); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", svc, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit replacement: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetType() string {
	return string(StoreTypeSQLite)
}

func (s *SQLiteStore) Ping() error {
	return s.db.Ping()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func upsertMeta(tx *sql.Tx, meta map[string]string) error {
	stmt, err := tx.Prepare(`
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare meta statement: %w", err)
	}
	defer stmt.Close()

	for k, v := range meta {
		if _, err = stmt.Exec(k, v); err != nil {
			return fmt.Errorf("failed to write meta key %s: %w", k, err)
		}
	}
	return nil
}
