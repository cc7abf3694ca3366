package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Run is one recorded plot run.
type Run struct {
	ID           string        `yaml:"id" json:"id"`
	StartedAt    time.Time     `yaml:"started_at" json:"started_at"`
	Duration     time.Duration `yaml:"duration" json:"duration"`
	ActivityPath string        `yaml:"activity" json:"activity"`
	GenotypePath string        `yaml:"genotype" json:"genotype"`
	OutputPath   string        `yaml:"output,omitempty" json:"output,omitempty"`
	View         string        `yaml:"view,omitempty" json:"view,omitempty"`
	Signal       string        `yaml:"signal,omitempty" json:"signal,omitempty"`
	Stat         string        `yaml:"stat,omitempty" json:"stat,omitempty"`
	Window       int           `yaml:"window,omitempty" json:"window,omitempty"`
	Fish         int           `yaml:"fish" json:"fish"`
	Genotypes    int           `yaml:"genotypes" json:"genotypes"`
	ActivityHash string        `yaml:"activity_hash,omitempty" json:"activity_hash,omitempty"`
	Status       string        `yaml:"status" json:"status"`
	Error        string        `yaml:"error,omitempty" json:"error,omitempty"`
}

// RecordRun stores run. A missing ID is generated and a zero StartedAt is set
// to the current time; the stored run is returned.
func (s *Store) RecordRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = StatusOK
	}
	run.StartedAt = run.StartedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, duration_ms, activity_path, genotype_path, output_path,
			plot_view, signal, stat, resample_window, fish, genotypes, activity_hash, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.Format(time.RFC3339Nano), run.Duration.Milliseconds(),
		run.ActivityPath, run.GenotypePath, run.OutputPath,
		run.View, run.Signal, run.Stat, run.Window, run.Fish, run.Genotypes,
		run.ActivityHash, run.Status, run.Error,
	)
	if err != nil {
		return run, fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return run, nil
}

const runColumns = `id, started_at, duration_ms, activity_path, genotype_path, output_path,
	plot_view, signal, stat, resample_window, fish, genotypes, activity_hash, status, error`

// ListRuns returns up to limit runs, newest first. A limit below 1 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id.
// Returns sql.ErrNoRows if there is no such run.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var startedAt string
	var durationMS int64
	err := sc.Scan(
		&run.ID, &startedAt, &durationMS, &run.ActivityPath, &run.GenotypePath, &run.OutputPath,
		&run.View, &run.Signal, &run.Stat, &run.Window, &run.Fish, &run.Genotypes,
		&run.ActivityHash, &run.Status, &run.Error,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return run, err
		}
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}
