package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Save writes the configuration as indented JSON, creating parent
// directories as needed.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Update sets keys in the config file at path and leaves the file's other
// keys as written. Keys are dotted paths such as "retry.enabled". Only the
// file itself is read: defaults, environment overrides and the demo task set
// are never written back.
func Update(path string, values map[string]any) error {
	v := viper.New()
	v.SetConfigType("json")
	if err := mergeConfigFile(v, path); err != nil {
		return err
	}
	for key, val := range values {
		v.Set(key, val)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}
