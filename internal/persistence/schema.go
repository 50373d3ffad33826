package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist. Times are
// stored as Unix milliseconds.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		total INTEGER NOT NULL,
		workers INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		task_key TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		success INTEGER NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_outcomes_run
		ON task_outcomes(run_id, finished_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
