package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/aristath/taskloader/internal/config"
	"github.com/aristath/taskloader/internal/process"
	"github.com/aristath/taskloader/internal/resilience"
	"github.com/aristath/taskloader/internal/scheduler"
)

// loadContext is the execution context handed to every task.
type loadContext struct {
	ctx    context.Context
	logger *slog.Logger
}

// Context lets the retry wrapper stop once the run is interrupted.
func (l *loadContext) Context() context.Context { return l.ctx }

// simulatedTask stands in for real loading work: it sleeps, then succeeds or
// fails as configured.
type simulatedTask struct {
	cfg      config.TaskConfig
	work     time.Duration
	attempts atomic.Int32
}

func (t *simulatedTask) Run(lc *loadContext) error {
	attempt := int(t.attempts.Add(1))

	if t.work > 0 {
		timer := time.NewTimer(t.work)
		select {
		case <-timer.C:
		case <-lc.ctx.Done():
			timer.Stop()
			return lc.ctx.Err()
		}
	}

	if t.cfg.Fail {
		return fmt.Errorf("%s: configured to fail", t.cfg.ID)
	}
	if attempt <= t.cfg.Flaky {
		lc.logger.Debug("simulated transient failure", "task", t.cfg.ID, "attempt", attempt)
		return fmt.Errorf("%s: transient failure on attempt %d", t.cfg.ID, attempt)
	}
	return nil
}

// commandTask runs an external command.
type commandTask struct {
	cfg config.TaskConfig
	pm  *process.Manager
}

func (t *commandTask) Run(lc *loadContext) error {
	out, err := process.Run(lc.ctx, t.pm, t.cfg.Command...)
	if err != nil {
		return fmt.Errorf("%s: %w", t.cfg.ID, err)
	}
	lc.logger.Debug("command finished", "task", t.cfg.ID, "output_bytes", len(out))
	return nil
}

// registerTasks registers the configured tasks. With retries enabled each
// task is wrapped in a retry loop guarded by the breaker of its first
// resource.
func registerTasks(s *scheduler.Scheduler[*loadContext], cfg *config.Config, breakers *resilience.BreakerRegistry, pm *process.Manager) error {
	var retryCfg resilience.RetryConfig
	if cfg.Retry.Enabled {
		var err error
		if retryCfg, err = resilience.FromConfig(cfg.Retry); err != nil {
			return err
		}
	}

	for _, tc := range cfg.Tasks {
		work, err := tc.WorkDuration()
		if err != nil {
			return fmt.Errorf("task %q: %w", tc.ID, err)
		}

		var runner scheduler.Runner[*loadContext] = &simulatedTask{cfg: tc, work: work}
		if len(tc.Command) > 0 {
			runner = &commandTask{cfg: tc, pm: pm}
		}
		if cfg.Retry.Enabled {
			runner = resilience.Retry(runner, retryCfg, breakerFor(tc, breakers))
		}

		desc := scheduler.Descriptor{
			ID:          tc.ID,
			DependsOn:   tc.DependsOn,
			Description: tc.Description,
			Resources:   tc.Resources,
		}
		if err := s.Register(runner, desc); err != nil {
			return fmt.Errorf("registering %q: %w", tc.ID, err)
		}
	}
	return nil
}

func breakerFor(tc config.TaskConfig, breakers *resilience.BreakerRegistry) *gobreaker.CircuitBreaker {
	if breakers == nil || len(tc.Resources) == 0 {
		return nil
	}
	return breakers.Get(tc.Resources[0])
}

// dependencyGraph returns the configured tasks as id -> dependency ids.
func dependencyGraph(tasks []config.TaskConfig) map[string][]string {
	graph := make(map[string][]string, len(tasks))
	for _, tc := range tasks {
		graph[tc.ID] = tc.DependsOn
	}
	return graph
}
