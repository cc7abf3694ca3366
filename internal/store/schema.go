package store

// schemaSQL defines the SQLite schema for the history database.
// Tables:
//   - runs: one row per plot run, successful or not
//   - input_index: last seen content hash per input file
const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    activity_path TEXT NOT NULL,
    genotype_path TEXT NOT NULL,
    output_path TEXT NOT NULL DEFAULT '',
    plot_view TEXT NOT NULL DEFAULT '',
    signal TEXT NOT NULL DEFAULT '',
    stat TEXT NOT NULL DEFAULT '',
    resample_window INTEGER NOT NULL DEFAULT 0,
    fish INTEGER NOT NULL DEFAULT 0,
    genotypes INTEGER NOT NULL DEFAULT 0,
    activity_hash TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS input_index (
    file_path TEXT PRIMARY KEY,
    content_hash TEXT NOT NULL,
    seen_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_activity ON runs(activity_path);
`

// initSchema creates the database tables and indexes if they don't exist.
func (s *Store) initSchema() error {
	_, err := s.db.Exec(schemaSQL)
	return err
}
