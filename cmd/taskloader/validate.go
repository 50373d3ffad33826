package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/taskloader/internal/scheduler"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configured dependency graph",
		Long: `validate prints an order in which the configured tasks can run, or
reports the cycle or unknown dependency that would keep some of them from
ever running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			order, err := scheduler.ValidateGraph(dependencyGraph(cfg.Tasks))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d tasks, dependency graph OK\n", len(order))
			for i, id := range order {
				fmt.Fprintf(out, "%3d. %s\n", i+1, id)
			}
			return nil
		},
	}
}
