// Package storage persists the two application documents, the canonical
// ledger and the derived holdings, as whole JSON values in sqlite.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/aristath/stockfolio/internal/domain"
)

const (
	docLedger   = "ledger"
	docHoldings = "holdings"
)

// Store is the document store. Each named document is read and written
// wholesale; the import pipeline is the single writer.
type Store struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Open opens (creating if needed) the store at the given path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:   db,
		path: path,
		log:  log.With().Str("component", "storage").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadLedger returns the canonical ledger, empty when none has been saved.
func (s *Store) LoadLedger() ([]domain.Transaction, error) {
	var ledger []domain.Transaction
	if err := s.loadDocument(docLedger, &ledger); err != nil {
		return nil, err
	}
	if ledger == nil {
		ledger = []domain.Transaction{}
	}
	return ledger, nil
}

// SaveLedger replaces the canonical ledger document.
func (s *Store) SaveLedger(ledger []domain.Transaction) error {
	return s.saveDocument(s.db, docLedger, ledger)
}

// LoadHoldings returns the derived holdings, empty when none have been saved.
func (s *Store) LoadHoldings() ([]domain.Position, error) {
	var holdings []domain.Position
	if err := s.loadDocument(docHoldings, &holdings); err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = []domain.Position{}
	}
	return holdings, nil
}

// SaveHoldings replaces the holdings document.
func (s *Store) SaveHoldings(holdings []domain.Position) error {
	return s.saveDocument(s.db, docHoldings, holdings)
}

// Export bundles both documents for backup or transfer.
func (s *Store) Export() (domain.Bundle, error) {
	ledger, err := s.LoadLedger()
	if err != nil {
		return domain.Bundle{}, err
	}
	holdings, err := s.LoadHoldings()
	if err != nil {
		return domain.Bundle{}, err
	}
	return domain.Bundle{
		LastUpdated: time.Now().UTC(),
		AllData:     ledger,
		Holdings:    holdings,
	}, nil
}

// Import replaces both documents wholesale from a bundle, atomically.
func (s *Store) Import(b domain.Bundle) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.saveDocument(tx, docLedger, b.AllData); err != nil {
		return err
	}
	if err := s.saveDocument(tx, docHoldings, b.Holdings); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	s.log.Info().
		Int("transactions", len(b.AllData)).
		Int("holdings", len(b.Holdings)).
		Msg("Imported bundle")

	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (s *Store) loadDocument(name string, v interface{}) error {
	var body string
	err := s.db.QueryRow("SELECT body FROM documents WHERE name = ?", name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load document %q: %w", name, err)
	}

	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("failed to decode document %q: %w", name, err)
	}
	return nil
}

func (s *Store) saveDocument(e execer, name string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %q: %w", name, err)
	}

	_, err = e.Exec(
		`INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		name, string(body), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save document %q: %w", name, err)
	}
	return nil
}
