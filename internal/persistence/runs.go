package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// CreateRun starts a journal entry and returns its generated ID.
func (s *SQLiteStore) CreateRun(ctx context.Context, total, workers int, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, total, workers)
		VALUES (?, ?, ?, ?)
	`, id, startedAt.UnixMilli(), total, workers)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the completion time of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ? WHERE id = ?
	`, finishedAt.UnixMilli(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// RecordOutcome appends a task outcome to its run.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, o Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, o.RunID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrRunNotFound, o.RunID)
	}
	if err != nil {
		return fmt.Errorf("failed to check run existence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO task_outcomes (run_id, task_key, description, success, error, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, o.RunID, o.TaskKey, o.Description, o.Success, o.Error, o.Duration.Milliseconds(), o.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert outcome for %s: %w", o.TaskKey, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const runColumns = `
	r.id, r.started_at, r.finished_at, r.total, r.workers,
	(SELECT COUNT(*) FROM task_outcomes o WHERE o.run_id = r.id),
	(SELECT COUNT(*) FROM task_outcomes o WHERE o.run_id = r.id AND o.success = 0)
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var started int64
	var finished sql.NullInt64
	if err := row.Scan(&run.ID, &started, &finished, &run.Total, &run.Workers, &run.Recorded, &run.Failed); err != nil {
		return nil, err
	}
	run.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		run.FinishedAt = time.UnixMilli(finished.Int64)
	}
	return run, nil
}

// GetRun returns a run with its outcome counts.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs r
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// ListOutcomes returns a run's outcomes in the order they were recorded.
func (s *SQLiteStore) ListOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, task_key, description, success, error, duration_ms, finished_at
		FROM task_outcomes
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var durationMS, finished int64
		if err := rows.Scan(&o.RunID, &o.TaskKey, &o.Description, &o.Success, &o.Error, &durationMS, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		o.Duration = time.Duration(durationMS) * time.Millisecond
		o.FinishedAt = time.UnixMilli(finished)
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return outcomes, nil
}
