package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. TASKLOADER_WORKERS or
// TASKLOADER_RETRY_MAX_INTERVAL.
const EnvPrefix = "TASKLOADER"

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): environment, project config,
// global config, defaults. Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	setDefaults(v, DefaultConfig())

	if err := mergeConfigFile(v, globalPath); err != nil {
		return nil, fmt.Errorf("loading global config: %w", err)
	}
	if err := mergeConfigFile(v, projectPath); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// Task lists replace each other wholesale; only fall back to the demo
	// set when no file declared one.
	if !v.IsSet("tasks") {
		cfg.Tasks = DefaultTasks()
	}

	return &cfg, nil
}

// DefaultPaths returns the conventional config locations.
// Global: ~/.taskloader/config.json
// Project: .taskloader/config.json (relative to cwd)
func DefaultPaths() (globalPath, projectPath string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".taskloader", "config.json"),
		filepath.Join(".taskloader", "config.json"), nil
}

// LoadDefault loads configuration from the conventional paths.
func LoadDefault() (*Config, error) {
	globalPath, projectPath, err := DefaultPaths()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, projectPath)
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("journal_path", d.JournalPath)
	v.SetDefault("retry.enabled", d.Retry.Enabled)
	v.SetDefault("retry.initial_interval", d.Retry.InitialInterval)
	v.SetDefault("retry.max_interval", d.Retry.MaxInterval)
	v.SetDefault("retry.max_elapsed_time", d.Retry.MaxElapsedTime)
	v.SetDefault("retry.multiplier", d.Retry.Multiplier)
	v.SetDefault("retry.randomization_factor", d.Retry.RandomizationFactor)
}

// mergeConfigFile merges a JSON file into v. Missing files are skipped.
func mergeConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	if err := v.MergeConfig(f); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
