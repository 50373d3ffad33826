package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshaling config: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name          string
		globalConfig  map[string]any
		projectConfig map[string]any
		expectWorkers int
		expectLevel   string
		expectTasks   int
		expectTaskID  string
	}{
		{
			name:          "No config files - returns defaults",
			expectWorkers: 0,
			expectLevel:   "info",
			expectTasks:   len(DefaultTasks()),
			expectTaskID:  "settings",
		},
		{
			name:          "Global only - overrides workers",
			globalConfig:  map[string]any{"workers": 3},
			expectWorkers: 3,
			expectLevel:   "info",
			expectTasks:   len(DefaultTasks()),
			expectTaskID:  "settings",
		},
		{
			name:         "Project overrides global",
			globalConfig: map[string]any{"workers": 3, "log_level": "debug"},
			projectConfig: map[string]any{
				"workers": 6,
			},
			expectWorkers: 6,
			expectLevel:   "debug",
			expectTasks:   len(DefaultTasks()),
			expectTaskID:  "settings",
		},
		{
			name: "Project task list replaces defaults",
			projectConfig: map[string]any{
				"tasks": []map[string]any{
					{"id": "only", "description": "The only task", "duration": "1ms"},
				},
			},
			expectWorkers: 0,
			expectLevel:   "info",
			expectTasks:   1,
			expectTaskID:  "only",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalConfig != nil {
				globalPath = filepath.Join(tmpDir, "global.json")
				writeJSON(t, globalPath, tt.globalConfig)
			}
			projectPath := ""
			if tt.projectConfig != nil {
				projectPath = filepath.Join(tmpDir, "project.json")
				writeJSON(t, projectPath, tt.projectConfig)
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.Workers != tt.expectWorkers {
				t.Errorf("workers = %d, want %d", cfg.Workers, tt.expectWorkers)
			}
			if cfg.LogLevel != tt.expectLevel {
				t.Errorf("log level = %q, want %q", cfg.LogLevel, tt.expectLevel)
			}
			if len(cfg.Tasks) != tt.expectTasks {
				t.Fatalf("tasks count = %d, want %d", len(cfg.Tasks), tt.expectTasks)
			}
			if cfg.Tasks[0].ID != tt.expectTaskID {
				t.Errorf("first task = %q, want %q", cfg.Tasks[0].ID, tt.expectTaskID)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("loaded config does not validate: %v", err)
			}
		})
	}
}

func TestLoad_DecodesTaskFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "project.json")
	writeJSON(t, path, map[string]any{
		"tasks": []map[string]any{
			{"id": "a", "command": []string{"echo", "hi"}},
			{"id": "b", "depends_on": []string{"a"}, "resources": []string{"disk"}, "duration": "5ms", "fail": true, "flaky": 2},
		},
	})

	cfg, err := Load("", path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if a := cfg.Tasks[0]; len(a.Command) != 2 || a.Command[0] != "echo" {
		t.Errorf("command = %v", a.Command)
	}

	b := cfg.Tasks[1]
	if len(b.DependsOn) != 1 || b.DependsOn[0] != "a" {
		t.Errorf("depends_on = %v", b.DependsOn)
	}
	if len(b.Resources) != 1 || b.Resources[0] != "disk" {
		t.Errorf("resources = %v", b.Resources)
	}
	if !b.Fail || b.Flaky != 2 || b.Duration != "5ms" {
		t.Errorf("task b decoded as %+v", b)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("TASKLOADER_WORKERS", "5")
	t.Setenv("TASKLOADER_RETRY_MAX_INTERVAL", "3s")

	path := filepath.Join(t.TempDir(), "global.json")
	writeJSON(t, path, map[string]any{"workers": 2})

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 5 {
		t.Errorf("workers = %d, want env override 5", cfg.Workers)
	}
	if cfg.Retry.MaxInterval != "3s" {
		t.Errorf("retry.max_interval = %q, want 3s", cfg.Retry.MaxInterval)
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	globalPath := filepath.Join(t.TempDir(), "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	if _, err := Load(globalPath, ""); err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}
	if len(cfg.Tasks) != len(DefaultTasks()) {
		t.Errorf("tasks count = %d, want defaults", len(cfg.Tasks))
	}
	if !cfg.Retry.Enabled || cfg.Retry.Multiplier != 2.0 {
		t.Errorf("retry defaults not applied: %+v", cfg.Retry)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -1 }, wantErr: true},
		{name: "unknown log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad retry interval", mutate: func(c *Config) { c.Retry.MaxInterval = "soon" }, wantErr: true},
		{name: "retry disabled ignores intervals", mutate: func(c *Config) {
			c.Retry.Enabled = false
			c.Retry.MaxInterval = "soon"
		}},
		{name: "multiplier below one", mutate: func(c *Config) { c.Retry.Multiplier = 0.5 }, wantErr: true},
		{name: "duplicate task id", mutate: func(c *Config) {
			c.Tasks = append(c.Tasks, TaskConfig{ID: "settings"})
		}, wantErr: true},
		{name: "missing task id", mutate: func(c *Config) {
			c.Tasks = append(c.Tasks, TaskConfig{Description: "anonymous"})
		}, wantErr: true},
		{name: "bad task duration", mutate: func(c *Config) { c.Tasks[0].Duration = "forever" }, wantErr: true},
		{name: "negative task duration", mutate: func(c *Config) { c.Tasks[0].Duration = "-1s" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
