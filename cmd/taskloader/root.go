package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aristath/taskloader/internal/config"
	"github.com/aristath/taskloader/internal/logging"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	journal    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "taskloader",
		Short: "Dependency-aware concurrent task loader",
		Long: `taskloader runs a set of loading tasks on a pool of workers, starting
each task once the tasks it depends on have run, and reports progress as
tasks complete. Runs are journaled to a local SQLite database.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.taskloader/config.json merged with .taskloader/config.json)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.journal, "journal", "", "run journal database path (overrides journal_path)")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newHistoryCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load reads the configuration and applies flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.Load("", o.configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if o.logLevel != "" {
		if !logging.ValidLevel(o.logLevel) {
			return nil, fmt.Errorf("unknown log level %q", o.logLevel)
		}
		cfg.LogLevel = o.logLevel
	}
	if o.journal != "" {
		cfg.JournalPath = o.journal
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
