// Package db persists UI state in a small SQLite key/value table.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// KeyLibraryOrder holds the user's manual library order as a JSON array of
// paths.
const KeyLibraryOrder = "library_order"

const schema = `
	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`

// Store provides access to the screenrec settings database.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default database path inside stateDir.
func DefaultDBPath(stateDir string) string {
	return filepath.Join(stateDir, "screenrec.sqlite")
}

// Open opens or creates the database with WAL.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database, creating the schema if needed.
func New(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key, or "" if unset.
func (s *Store) Get(key string) (string, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// LibraryOrder returns the saved library order. A missing or malformed value
// reads as no order.
func (s *Store) LibraryOrder() ([]string, error) {
	raw, err := s.Get(KeyLibraryOrder)
	if err != nil || raw == "" {
		return nil, err
	}
	var order []string
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		return nil, nil
	}
	return order, nil
}

// SetLibraryOrder saves the library order.
func (s *Store) SetLibraryOrder(order []string) error {
	if order == nil {
		order = []string{}
	}
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.Set(KeyLibraryOrder, string(data))
}
