package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"
)

// HashFile returns the hex SHA-256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SetInputHash records the content hash last seen for an input file.
func (s *Store) SetInputHash(path, hash string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO input_index (file_path, content_hash, seen_at)
		VALUES (?, ?, ?)`,
		path, hash, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set input hash %s: %w", path, err)
	}
	return nil
}

// InputHash returns the last recorded hash of an input file.
// Returns sql.ErrNoRows if the file has never been recorded.
func (s *Store) InputHash(path string) (string, error) {
	var hash string
	err := s.db.QueryRow("SELECT content_hash FROM input_index WHERE file_path = ?", path).Scan(&hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("get input hash %s: %w", path, err)
	}
	return hash, nil
}

// IsInputChanged reports whether hash differs from the recorded hash of path.
// A file that was never recorded counts as changed.
func (s *Store) IsInputChanged(path, hash string) (bool, error) {
	old, err := s.InputHash(path)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return old != hash, nil
}
