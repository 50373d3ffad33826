package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aristath/taskloader/internal/events"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func TestModel_TracksLoading(t *testing.T) {
	m := newModel(make(chan events.Event))
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	now := time.Now()
	msgs := []tea.Msg{
		events.LoadingStartedEvent{Total: 2, Workers: 2, Timestamp: now},
		events.TaskStartedEvent{ID: "textures", Description: "Loading textures", Worker: 1, Timestamp: now},
		events.TaskStartedEvent{ID: "audio", Worker: 2, Timestamp: now},
		events.TaskCompletedEvent{ID: "textures", Description: "Loading textures", Duration: 20 * time.Millisecond, Timestamp: now},
		events.ProgressEvent{Message: "Loading textures", Completed: 1, Total: 2, Fraction: 0.5, Timestamp: now},
		events.TaskCompletedEvent{ID: "audio", Err: errors.New("codec missing"), Timestamp: now},
		events.WarningEvent{Message: "dependency check failed", Timestamp: now},
	}
	for _, msg := range msgs {
		m, _ = update(t, m, msg)
	}

	if m.Done() {
		t.Error("model should not be done before the completing progress event")
	}
	if got := m.Failed(); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
	if state, ok := m.taskPane.Task("textures"); !ok || state.Status != "completed" {
		t.Errorf("unexpected textures state: %+v", state)
	}
	if state, ok := m.taskPane.Task("audio"); !ok || state.Status != "failed" {
		t.Errorf("unexpected audio state: %+v", state)
	}

	log := strings.Join(m.taskPane.Log(), "\n")
	for _, want := range []string{"started textures (Loading textures)", "codec missing", "dependency check failed"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q:\n%s", want, log)
		}
	}

	m, cmd := update(t, m, events.ProgressEvent{Completed: 2, Total: 2, Fraction: 1, Complete: true, Timestamp: now})
	if !m.Done() {
		t.Error("expected Done() after completing progress event")
	}
	if cmd == nil {
		t.Error("expected quit timer and next event commands")
	}

	view := m.View()
	if !strings.Contains(view, "complete") || !strings.Contains(view, "2/2") {
		t.Errorf("view missing completion summary:\n%s", view)
	}
}

func TestModel_QuitKey(t *testing.T) {
	m := newModel(make(chan events.Event))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if m.View() != "Goodbye!\n" {
		t.Errorf("unexpected view after quit: %q", m.View())
	}
}

func TestModel_QuitsAfterCompletionTimer(t *testing.T) {
	m := newModel(make(chan events.Event))

	_, cmd := update(t, m, quitMsg{})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_FocusCycles(t *testing.T) {
	m := newModel(make(chan events.Event))
	if m.focusedPane != PaneTasks {
		t.Fatalf("expected task pane focused initially")
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPane != PaneProgress {
		t.Errorf("expected progress pane focused after tab")
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.focusedPane != PaneTasks {
		t.Errorf("expected task pane focused after second tab")
	}
}

func TestWaitForEvent(t *testing.T) {
	sub := make(chan events.Event, 1)
	sub <- events.WarningEvent{Message: "hello"}
	close(sub)

	cmd := waitForEvent(sub)
	if msg, ok := cmd().(events.WarningEvent); !ok || msg.Message != "hello" {
		t.Errorf("expected buffered warning event, got %#v", msg)
	}
	if _, ok := cmd().(busClosedMsg); !ok {
		t.Error("expected busClosedMsg once the subscription is closed")
	}
}

func TestModel_InitializingView(t *testing.T) {
	m := newModel(make(chan events.Event))
	if m.View() != "Initializing..." {
		t.Errorf("unexpected view before window size: %q", m.View())
	}
}
