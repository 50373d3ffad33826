package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aristath/taskloader/internal/events"
)

// Journal writes a scheduler run to a Store from the run's event stream.
type Journal struct {
	store  Store
	logger *slog.Logger
}

// NewJournal creates a Journal writing to store.
func NewJournal(store Store, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: store, logger: logger}
}

// Record consumes events until the run completes, the channel closes or ctx
// ends, and returns the ID of the journaled run. The subscription must be
// buffered generously: events the bus drops are missing from the journal.
func (j *Journal) Record(ctx context.Context, sub <-chan events.Event) (string, error) {
	var runID string

	for {
		select {
		case <-ctx.Done():
			return runID, ctx.Err()

		case evt, ok := <-sub:
			if !ok {
				return runID, nil
			}

			switch e := evt.(type) {
			case events.LoadingStartedEvent:
				id, err := j.store.CreateRun(ctx, e.Total, e.Workers, e.Timestamp)
				if err != nil {
					return "", fmt.Errorf("failed to journal run start: %w", err)
				}
				runID = id
				j.logger.Debug("journal run created", "run", runID, "tasks", e.Total)

			case events.TaskCompletedEvent:
				if runID == "" {
					j.logger.Warn("task completed before run start, not journaled", "task", e.ID)
					continue
				}
				outcome := Outcome{
					RunID:       runID,
					TaskKey:     e.ID,
					Description: e.Description,
					Success:     !e.Failed(),
					Duration:    e.Duration,
					FinishedAt:  e.Timestamp,
				}
				if e.Err != nil {
					outcome.Error = e.Err.Error()
				}
				if err := j.store.RecordOutcome(ctx, outcome); err != nil {
					return runID, fmt.Errorf("failed to journal outcome: %w", err)
				}

			case events.ProgressEvent:
				if !e.Complete {
					continue
				}
				if runID == "" {
					// Empty start: no LoadingStartedEvent precedes completion
					id, err := j.store.CreateRun(ctx, 0, 0, e.Timestamp)
					if err != nil {
						return "", fmt.Errorf("failed to journal run start: %w", err)
					}
					runID = id
				}
				if err := j.store.FinishRun(ctx, runID, e.Timestamp); err != nil {
					return runID, fmt.Errorf("failed to journal run finish: %w", err)
				}
				j.logger.Debug("journal run finished", "run", runID)
				return runID, nil
			}
		}
	}
}

// Summary formats a one-line description of a run.
func Summary(run *Run) string {
	status := "unfinished"
	if run.Finished() {
		status = fmt.Sprintf("finished in %s", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	return fmt.Sprintf("%s: %d/%d tasks, %d failed, %d workers, %s",
		run.ID, run.Recorded, run.Total, run.Failed, run.Workers, status)
}
