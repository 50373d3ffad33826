package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one journaled scheduler run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time // Zero while the run is unfinished
	Total      int
	Workers    int
	Recorded   int // Outcomes recorded so far
	Failed     int // Outcomes with an error
}

// Finished reports whether the run reached completion.
func (r *Run) Finished() bool { return !r.FinishedAt.IsZero() }

// Outcome is the result of one executed task.
type Outcome struct {
	RunID       string
	TaskKey     string
	Description string
	Success     bool
	Error       string
	Duration    time.Duration
	FinishedAt  time.Time
}

// Store defines the run journal. It is history only: nothing is ever
// re-queued from it.
type Store interface {
	CreateRun(ctx context.Context, total, workers int, startedAt time.Time) (string, error)
	FinishRun(ctx context.Context, runID string, finishedAt time.Time) error
	RecordOutcome(ctx context.Context, outcome Outcome) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListOutcomes(ctx context.Context, runID string) ([]Outcome, error)
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the journal at dbPath with WAL mode and
// a busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// modernc.org/sqlite applies _pragma parameters on every new connection
	connStr := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	return open(ctx, connStr)
}

// NewMemoryStore creates a private in-memory store for testing.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	// Named so that concurrent stores in one process stay isolated, shared
	// cache so the store's own connections see one database
	connStr := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	return open(ctx, connStr)
}

func open(ctx context.Context, connStr string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc.org/sqlite needs foreign keys enabled per connection via PRAGMA
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// One writer keeps the PRAGMA above in effect for every statement
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
