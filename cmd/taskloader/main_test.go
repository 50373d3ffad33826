package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/aristath/taskloader/internal/config"
	"github.com/aristath/taskloader/internal/logging"
)

// executeCommand runs the root command with args and returns captured stdout.
func executeCommand(args ...string) (string, error) {
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// writeConfig saves a config with the given tasks and returns its path.
func writeConfig(t *testing.T, retry bool, tasks ...config.TaskConfig) string {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.LogLevel = "error"
	cfg.Retry.Enabled = retry
	cfg.Retry.InitialInterval = "1ms"
	cfg.Retry.MaxInterval = "5ms"
	cfg.Retry.MaxElapsedTime = "1s"
	cfg.Tasks = tasks

	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

func TestRunCommand_JournalsRun(t *testing.T) {
	cfgPath := writeConfig(t, false,
		config.TaskConfig{ID: "settings", Description: "Reading settings", Duration: "5ms"},
		config.TaskConfig{ID: "textures", Description: "Loading textures", DependsOn: []string{"settings"}, Duration: "5ms"},
		config.TaskConfig{ID: "scene", Description: "Assembling scene", DependsOn: []string{"textures"}},
	)
	journal := filepath.Join(t.TempDir(), "journal.db")

	out, err := executeCommand("run", "--config", cfgPath, "--journal", journal, "--no-tui", "--workers", "2")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Reading settings", "Assembling scene", "loading complete", "Loaded 3 tasks", "Journaled as run"} {
		if !strings.Contains(out, want) {
			t.Errorf("run output missing %q:\n%s", want, out)
		}
	}

	// Dependencies print in order
	if strings.Index(out, "Reading settings") > strings.Index(out, "Loading textures") ||
		strings.Index(out, "Loading textures") > strings.Index(out, "Assembling scene") {
		t.Errorf("progress lines out of dependency order:\n%s", out)
	}

	out, err = executeCommand("history", "--config", cfgPath, "--journal", journal)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "3/3") {
		t.Errorf("history missing run:\n%s", out)
	}
}

func TestRunCommand_FailureExitsNonZero(t *testing.T) {
	cfgPath := writeConfig(t, false,
		config.TaskConfig{ID: "audio", Fail: true},
		config.TaskConfig{ID: "scene", DependsOn: []string{"audio"}},
	)

	out, err := executeCommand("run", "--config", cfgPath, "--no-tui", "--no-journal")
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !strings.Contains(err.Error(), "1 of 2 tasks failed") {
		t.Errorf("unexpected error: %v", err)
	}
	// A failed dependency still counts as completed
	if !strings.Contains(out, "loading complete") {
		t.Errorf("expected the run to complete:\n%s", out)
	}
}

func TestRunCommand_RetriesFlakyTask(t *testing.T) {
	cfgPath := writeConfig(t, true,
		config.TaskConfig{ID: "shaders", Flaky: 2, Resources: []string{"gpu"}},
	)

	out, err := executeCommand("run", "--config", cfgPath, "--no-tui", "--no-journal")
	if err != nil {
		t.Fatalf("expected retries to recover the flaky task: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 failed") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRunCommand_RejectsNegativeWorkers(t *testing.T) {
	cfgPath := writeConfig(t, false, config.TaskConfig{ID: "a"})

	if _, err := executeCommand("run", "--config", cfgPath, "--no-tui", "--workers", "-1"); err == nil {
		t.Error("expected error for negative workers")
	}
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeConfig(t, false,
		config.TaskConfig{ID: "scene", DependsOn: []string{"terrain"}},
		config.TaskConfig{ID: "terrain"},
	)

	out, err := executeCommand("validate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "1. terrain") || !strings.Contains(out, "2. scene") {
		t.Errorf("unexpected order:\n%s", out)
	}

	cyclic := writeConfig(t, false,
		config.TaskConfig{ID: "a", DependsOn: []string{"b"}},
		config.TaskConfig{ID: "b", DependsOn: []string{"a"}},
	)
	if _, err := executeCommand("validate", "--config", cyclic); err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Errorf("expected cycle error, got %v", err)
	}

	unknown := writeConfig(t, false, config.TaskConfig{ID: "a", DependsOn: []string{"ghost"}})
	if _, err := executeCommand("validate", "--config", unknown); err == nil || !strings.Contains(err.Error(), "ghost") {
		t.Errorf("expected unknown dependency error, got %v", err)
	}
}

func TestHistoryCommand_NoJournal(t *testing.T) {
	cfgPath := writeConfig(t, false, config.TaskConfig{ID: "a"})

	out, err := executeCommand("history", "--config", cfgPath, "--journal", filepath.Join(t.TempDir(), "missing.db"))
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRootOptions_RejectsUnknownLogLevel(t *testing.T) {
	cfgPath := writeConfig(t, false, config.TaskConfig{ID: "a"})

	opts := &rootOptions{configPath: cfgPath, logLevel: "verbose"}
	if _, err := opts.load(); err == nil {
		t.Error("expected error for unknown log level")
	}
}

func TestSimulatedTask_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := &simulatedTask{cfg: config.TaskConfig{ID: "slow"}, work: time.Minute}
	lc := &loadContext{ctx: ctx, logger: logging.New("error", io.Discard)}

	start := time.Now()
	err := task.Run(lc)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled task kept sleeping")
	}
}

// TestSignalContextCancellation verifies that signal.NotifyContext produces
// a context that cancels correctly when a signal is received.
func TestSignalContextCancellation(t *testing.T) {
	// Use SIGUSR1 as a safe test signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGUSR1)
	defer stop()

	if err := syscall.Kill(os.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("Failed to send SIGUSR1: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(1 * time.Second):
		t.Fatal("Context did not cancel after SIGUSR1")
	}

	if err := ctx.Err(); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCmd()
	if root.Use != "taskloader" {
		t.Errorf("root.Use = %q, want %q", root.Use, "taskloader")
	}

	found := make(map[string]bool)
	for _, cmd := range root.Commands() {
		found[cmd.Name()] = true
	}
	for _, name := range []string{"run", "validate", "history", "config"} {
		if !found[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestRunCommand_CommandTasks(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "marker")
	cfgPath := writeConfig(t, false,
		config.TaskConfig{ID: "touch", Command: []string{"touch", marker}},
		config.TaskConfig{ID: "check", DependsOn: []string{"touch"}, Command: []string{"test", "-f", marker}},
		config.TaskConfig{ID: "broken", Command: []string{"bash", "-c", "exit 4"}},
	)

	_, err := executeCommand("run", "--config", cfgPath, "--no-tui", "--no-journal")
	if err == nil || !strings.Contains(err.Error(), "1 of 3 tasks failed") {
		t.Fatalf("expected only the broken command to fail, got %v", err)
	}
	if _, statErr := os.Stat(marker); statErr != nil {
		t.Errorf("command task did not run: %v", statErr)
	}
}
