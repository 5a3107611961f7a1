// Package store persists conversion history in SQLite so the CLI can list
// what was generated, from where, and with how many warnings.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversions (
	id TEXT PRIMARY KEY,
	graph_name TEXT NOT NULL,
	source_path TEXT NOT NULL,
	output_path TEXT NOT NULL,
	nodes INTEGER NOT NULL,
	warnings INTEGER NOT NULL,
	created_at TEXT NOT NULL
);`

const (
	defaultDir = ".petalgen"
	defaultDB  = "petalgen.db"
)

// Record is one persisted conversion.
type Record struct {
	ID         string
	GraphName  string
	SourcePath string
	OutputPath string
	Nodes      int
	Warnings   int
	CreatedAt  time.Time
}

// Store is a SQLite-backed conversion history.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default SQLite path for CLI storage.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: resolve user home: %w", err)
	}
	return filepath.Join(home, defaultDir, defaultDB), nil
}

// OpenDefault opens (or creates) the store at ~/.petalgen/petalgen.db.
func OpenDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	return Open(path)
}

// Open opens (or creates) a store at the given path.
func Open(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("store: dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Add persists a conversion record. A zero ID or CreatedAt is filled in.
func (s *Store) Add(ctx context.Context, r Record) (Record, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, graph_name, source_path, output_path, nodes, warnings, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.GraphName, r.SourcePath, r.OutputPath, r.Nodes, r.Warnings,
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("store: insert conversion: %w", err)
	}
	return r, nil
}

// List returns the most recent conversions, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, graph_name, source_path, output_path, nodes, warnings, created_at
		 FROM conversions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list conversions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var created string
		if err := rows.Scan(&r.ID, &r.GraphName, &r.SourcePath, &r.OutputPath, &r.Nodes, &r.Warnings, &created); err != nil {
			return nil, fmt.Errorf("store: scan conversion: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("store: parse created_at: %w", err)
		}
		r.CreatedAt = t
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate conversions: %w", err)
	}
	return records, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
