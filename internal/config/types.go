package config

import (
	"fmt"
	"time"

	"github.com/aristath/taskloader/internal/logging"
)

// TaskConfig describes one task for the CLI. A task with a Command runs it;
// otherwise it simulates work by sleeping for Duration. Real hosts register
// their own runners; these exist to drive the loader from a config file.
type TaskConfig struct {
	ID          string   `json:"id" mapstructure:"id"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	DependsOn   []string `json:"depends_on,omitempty" mapstructure:"depends_on"`
	Resources   []string `json:"resources,omitempty" mapstructure:"resources"`
	Command     []string `json:"command,omitempty" mapstructure:"command"`   // External command run as the task's work
	Duration    string   `json:"duration,omitempty" mapstructure:"duration"` // Simulated work, e.g. "150ms"
	Fail        bool     `json:"fail,omitempty" mapstructure:"fail"`         // Always fail
	Flaky       int      `json:"flaky,omitempty" mapstructure:"flaky"`       // Fail this many attempts before succeeding
}

// RetryConfig controls the per-task retry wrapper. Intervals are Go
// duration strings.
type RetryConfig struct {
	Enabled             bool    `json:"enabled" mapstructure:"enabled"`
	InitialInterval     string  `json:"initial_interval" mapstructure:"initial_interval"`
	MaxInterval         string  `json:"max_interval" mapstructure:"max_interval"`
	MaxElapsedTime      string  `json:"max_elapsed_time" mapstructure:"max_elapsed_time"`
	Multiplier          float64 `json:"multiplier" mapstructure:"multiplier"`
	RandomizationFactor float64 `json:"randomization_factor" mapstructure:"randomization_factor"`
}

// Config is the top-level configuration.
type Config struct {
	Workers     int          `json:"workers" mapstructure:"workers"` // 0 means one per CPU
	LogLevel    string       `json:"log_level" mapstructure:"log_level"`
	LogFile     string       `json:"log_file,omitempty" mapstructure:"log_file"`
	JournalPath string       `json:"journal_path" mapstructure:"journal_path"`
	Retry       RetryConfig  `json:"retry" mapstructure:"retry"`
	Tasks       []TaskConfig `json:"tasks" mapstructure:"tasks"`
}

// Validate reports the first problem found in the configuration.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}

	if c.Retry.Enabled {
		for name, val := range map[string]string{
			"initial_interval": c.Retry.InitialInterval,
			"max_interval":     c.Retry.MaxInterval,
			"max_elapsed_time": c.Retry.MaxElapsedTime,
		} {
			if _, err := time.ParseDuration(val); err != nil {
				return fmt.Errorf("retry.%s: %w", name, err)
			}
		}
		if c.Retry.Multiplier < 1 {
			return fmt.Errorf("retry.multiplier must be at least 1, got %v", c.Retry.Multiplier)
		}
	}

	seen := make(map[string]bool, len(c.Tasks))
	for i, task := range c.Tasks {
		if task.ID == "" {
			return fmt.Errorf("task %d has no id", i)
		}
		if seen[task.ID] {
			return fmt.Errorf("duplicate task id %q", task.ID)
		}
		seen[task.ID] = true

		if _, err := task.WorkDuration(); err != nil {
			return fmt.Errorf("task %q: %w", task.ID, err)
		}
	}
	return nil
}

// WorkDuration parses Duration; an empty value means no simulated work.
func (t TaskConfig) WorkDuration() (time.Duration, error) {
	if t.Duration == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.Duration)
	if err != nil {
		return 0, fmt.Errorf("parsing duration: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}
