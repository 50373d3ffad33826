package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/aristath/taskloader/internal/config"
	"github.com/aristath/taskloader/internal/tui"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Edit loader settings interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}

			globalPath, projectPath, err := config.DefaultPaths()
			if err != nil {
				return err
			}
			if root.configPath != "" {
				projectPath = root.configPath
			}

			final, err := tea.NewProgram(
				tui.NewSettingsModel(cfg, globalPath, projectPath),
				tea.WithContext(cmd.Context()),
			).Run()
			if err != nil {
				return err
			}

			settings, ok := final.(tui.SettingsModel)
			if !ok {
				return nil
			}
			if err := settings.Err(); err != nil {
				return err
			}
			if path, saved := settings.Saved(); saved {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved settings to %s\n", path)
			}
			return nil
		},
	}
}
