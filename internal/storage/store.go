package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Cache kinds used by the adapter decorators.
const (
	KindRecognition = "recognition"
	KindCondition   = "condition"
)

// Store persists adapter results keyed by content hash so repeated analyses
// of the same image skip the backend call.
type Store interface {
	Get(kind, hash string) (value string, ok bool, err error)
	Set(kind, hash, value string) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and if needed creates) the cache database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS adapter_cache (
		kind       TEXT NOT NULL,
		hash       TEXT NOT NULL,
		value      TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (kind, hash)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create adapter_cache table: %w", err)
	}
	return nil
}

// Get returns the cached value for (kind, hash), with ok=false on a miss.
func (s *SQLiteStore) Get(kind, hash string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRow(
		`SELECT value FROM adapter_cache WHERE kind = ? AND hash = ?`,
		kind, hash,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return value, true, nil
}

// Set stores or replaces the cached value for (kind, hash).
func (s *SQLiteStore) Set(kind, hash, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO adapter_cache (kind, hash, value, created_at) VALUES (?, ?, ?, ?)`,
		kind, hash, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
