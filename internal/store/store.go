// Package store provides SQLite-backed run history for fishviz.
// The database lives at .fishviz/history.db by default and records every plot
// run together with the content hash of each input file it read.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store manages the run history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the history database at dbPath, creating its parent
// directory if needed. It initializes the schema if the database is new.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	// WAL keeps history readable while a watch run is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Clear removes all recorded runs and input hashes.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM runs; DELETE FROM input_index;"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Stats summarizes the history contents.
type Stats struct {
	Runs   int64 `yaml:"runs" json:"runs"`
	Failed int64 `yaml:"failed" json:"failed"`
	Inputs int64 `yaml:"inputs" json:"inputs"`
}

// GetStats returns statistics about the history contents.
func (s *Store) GetStats() (*Stats, error) {
	var stats Stats

	err := s.db.QueryRow("SELECT COUNT(*), COALESCE(SUM(status = 'error'), 0) FROM runs").Scan(&stats.Runs, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	err = s.db.QueryRow("SELECT COUNT(*) FROM input_index").Scan(&stats.Inputs)
	if err != nil {
		return nil, fmt.Errorf("count inputs: %w", err)
	}

	return &stats, nil
}
