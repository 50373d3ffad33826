package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aristath/taskloader/internal/config"
	"github.com/aristath/taskloader/internal/events"
	"github.com/aristath/taskloader/internal/logging"
	"github.com/aristath/taskloader/internal/persistence"
	"github.com/aristath/taskloader/internal/process"
	"github.com/aristath/taskloader/internal/resilience"
	"github.com/aristath/taskloader/internal/scheduler"
	"github.com/aristath/taskloader/internal/tui"
)

// shutdownTimeout bounds how long an interrupted run waits for in-flight
// tasks and the journal.
const shutdownTimeout = 10 * time.Second

type runOptions struct {
	workers   int
	noTUI     bool
	noJournal bool
}

// runResult summarizes one run.
type runResult struct {
	RunID   string
	Total   int
	Failed  int
	Elapsed time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				if opts.workers < 0 {
					return fmt.Errorf("workers must not be negative, got %d", opts.workers)
				}
				cfg.Workers = opts.workers
			}

			res, err := runLoad(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Loaded %s tasks in %s, %d failed\n",
				humanize.Comma(int64(res.Total)), res.Elapsed.Round(time.Millisecond), res.Failed)
			if res.RunID != "" {
				fmt.Fprintf(out, "Journaled as run %s\n", res.RunID)
			}
			if res.Failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", res.Failed, res.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "worker goroutines (0 means one per CPU)")
	cmd.Flags().BoolVar(&opts.noTUI, "no-tui", false, "print progress lines instead of the interactive view")
	cmd.Flags().BoolVar(&opts.noJournal, "no-journal", false, "do not journal the run")
	return cmd
}

// runLoad executes one loading run and blocks until it has finished.
func runLoad(ctx context.Context, cfg *config.Config, opts *runOptions, out, errOut io.Writer) (runResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger, closeLog, err := newLogger(cfg, opts, errOut)
	if err != nil {
		return runResult{}, err
	}
	defer closeLog()

	bus := events.NewEventBus()
	defer bus.Close()

	var failed atomic.Int32
	schedCfg := scheduler.Config[*loadContext]{
		Workers: cfg.Workers,
		Logger:  logger,
		Events:  bus,
		OnError: func(error, *loadContext) {
			failed.Add(1)
		},
	}
	if opts.noTUI {
		schedCfg.Progress = progressPrinter(out)
	}

	lc := &loadContext{ctx: ctx, logger: logger}
	s := scheduler.New(lc, schedCfg)
	pm := process.NewManager()
	if err := registerTasks(s, cfg, resilience.NewBreakerRegistry(logger), pm); err != nil {
		return runResult{}, err
	}

	// Subscribers attach before Start so they see the whole run
	var journalDone chan journalResult
	if !opts.noJournal && cfg.JournalPath != "" {
		store, err := persistence.NewSQLiteStore(ctx, cfg.JournalPath)
		if err != nil {
			return runResult{}, fmt.Errorf("opening journal: %w", err)
		}
		defer store.Close()

		sub := bus.SubscribeAll(4*len(cfg.Tasks) + 16)
		journalDone = make(chan journalResult, 1)
		go func() {
			runID, err := persistence.NewJournal(store, logger).Record(ctx, sub)
			journalDone <- journalResult{runID, err}
		}()
	}

	var tuiDone chan error
	var program *tea.Program
	if !opts.noTUI {
		program = tea.NewProgram(tui.New(bus), tea.WithOutput(out), tea.WithContext(ctx))
		tuiDone = make(chan error, 1)
		go func() {
			_, err := program.Run()
			tuiDone <- err
		}()
	}

	s.Start()

	if err := s.Wait(ctx); err != nil {
		// Interrupted: tasks see the cancelled context and wind down
		logger.Warn("interrupted, waiting for running tasks", "completed", s.Completed(), "total", s.Total())
		if err := pm.KillAll(); err != nil {
			logger.Error("killing subprocesses", "error", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Wait(shutdownCtx); err != nil {
			return runResult{}, fmt.Errorf("tasks did not finish within %s: %w", shutdownTimeout, err)
		}
	}

	res := runResult{
		Total:   s.Total(),
		Failed:  int(failed.Load()),
		Elapsed: s.Elapsed(),
	}

	if journalDone != nil {
		select {
		case jr := <-journalDone:
			if jr.err != nil && !errors.Is(jr.err, context.Canceled) {
				logger.Error("journal failed", "error", jr.err)
			}
			res.RunID = jr.runID
		case <-time.After(shutdownTimeout):
			logger.Error("journal did not finish", "timeout", shutdownTimeout)
		}
	}

	if tuiDone != nil {
		if ctx.Err() != nil {
			program.Quit()
		}
		if err := <-tuiDone; err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			logger.Error("TUI exit error", "error", err)
		}
	}

	if ctx.Err() != nil {
		return res, fmt.Errorf("run interrupted after %d of %d tasks: %w", s.Completed(), s.Total(), ctx.Err())
	}
	return res, nil
}

type journalResult struct {
	runID string
	err   error
}

// newLogger picks the run's log destination. The interactive view owns the
// terminal, so without a log file its logs are discarded.
func newLogger(cfg *config.Config, opts *runOptions, errOut io.Writer) (*slog.Logger, func(), error) {
	if cfg.LogFile != "" {
		logger, f, err := logging.NewFile(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		return logger, func() { f.Close() }, nil
	}
	if !opts.noTUI {
		return logging.New(cfg.LogLevel, io.Discard), func() {}, nil
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return logging.New(cfg.LogLevel, errOut), func() {}, nil
}

// progressPrinter reports each completion as a line.
func progressPrinter(out io.Writer) scheduler.ProgressFunc {
	return func(message string, complete bool, fraction float64) {
		if message != "" {
			fmt.Fprintf(out, "[%3.0f%%] %s\n", fraction*100, message)
		}
		if complete {
			fmt.Fprintln(out, "loading complete")
		}
	}
}
