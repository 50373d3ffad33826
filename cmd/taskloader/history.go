package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aristath/taskloader/internal/persistence"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.JournalPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			store, err := persistence.NewSQLiteStore(cmd.Context(), cfg.JournalPath)
			if err != nil {
				return fmt.Errorf("opening journal: %w", err)
			}
			defer store.Close()

			if runID != "" {
				return showRun(cmd, store, runID)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("RUN", "STARTED", "TASKS", "FAILED", "WORKERS", "DURATION")
			for _, run := range runs {
				duration := "unfinished"
				if run.Finished() {
					duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
				}
				t.Row(
					run.ID,
					humanize.Time(run.StartedAt),
					fmt.Sprintf("%d/%d", run.Recorded, run.Total),
					strconv.Itoa(run.Failed),
					strconv.Itoa(run.Workers),
					duration,
				)
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "show the task outcomes of one run")
	return cmd
}

// showRun prints one run and its task outcomes.
func showRun(cmd *cobra.Command, store persistence.Store, runID string) error {
	run, err := store.GetRun(cmd.Context(), runID)
	if err != nil {
		return err
	}
	outcomes, err := store.ListOutcomes(cmd.Context(), runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, persistence.Summary(run))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TASK", "DESCRIPTION", "RESULT", "DURATION")
	for _, o := range outcomes {
		result := "ok"
		if !o.Success {
			result = o.Error
		}
		t.Row(o.TaskKey, o.Description, result, o.Duration.String())
	}
	fmt.Fprintln(out, t.Render())
	return nil
}
