package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskloader/internal/events"
)

const (
	listWidth = 28
	maxLog    = 500 // Log lines kept for the viewport
)

// TaskState is the display state of one task.
type TaskState struct {
	ID          string
	Description string
	Status      string // "running", "completed", "failed"
	Worker      int
	Duration    time.Duration
}

// TaskPaneModel lists tasks as they run next to a scrollable event log.
type TaskPaneModel struct {
	tasks    map[string]*TaskState
	order    []string // First-seen order for display
	log      []string
	viewport viewport.Model
	width    int
	height   int
	focused  bool
}

// NewTaskPaneModel creates a new task pane model.
func NewTaskPaneModel() TaskPaneModel {
	return TaskPaneModel{
		tasks:    make(map[string]*TaskState),
		viewport: viewport.New(0, 0),
	}
}

// Update handles messages for the task pane.
func (m TaskPaneModel) Update(msg tea.Msg) (TaskPaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if !m.focused {
			break
		}
		// The viewport's key map scrolls on j/k and the arrow keys
		m.viewport, cmd = m.viewport.Update(msg)

	case events.TaskStartedEvent:
		state, exists := m.tasks[msg.ID]
		if !exists {
			state = &TaskState{ID: msg.ID}
			m.tasks[msg.ID] = state
			m.order = append(m.order, msg.ID)
		}
		state.Description = msg.Description
		state.Status = "running"
		state.Worker = msg.Worker
		m.appendLog(fmt.Sprintf("[w%d] started %s", msg.Worker, label(msg.ID, msg.Description)))

	case events.TaskCompletedEvent:
		state, exists := m.tasks[msg.ID]
		if !exists {
			state = &TaskState{ID: msg.ID, Description: msg.Description}
			m.tasks[msg.ID] = state
			m.order = append(m.order, msg.ID)
		}
		state.Duration = msg.Duration
		if msg.Failed() {
			state.Status = "failed"
			m.appendLog(StyleStatusFailed.Render(fmt.Sprintf("failed %s: %v", label(msg.ID, msg.Description), msg.Err)))
		} else {
			state.Status = "completed"
			m.appendLog(fmt.Sprintf("done %s in %s", label(msg.ID, msg.Description), msg.Duration.Round(time.Millisecond)))
		}

	case events.WarningEvent:
		m.appendLog(StyleWarning.Render("warning: " + msg.Message))
	}

	return m, cmd
}

func label(id, description string) string {
	if description == "" {
		return id
	}
	return fmt.Sprintf("%s (%s)", id, description)
}

func (m *TaskPaneModel) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
	m.viewport.SetContent(strings.Join(m.log, "\n"))
	m.viewport.GotoBottom()
}

// View renders the task pane.
func (m TaskPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	viewportWidth := m.width - listWidth - 4

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderTaskList(),
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

// renderTaskList renders the task list column. Once it overflows the pane,
// the most recently seen tasks are shown.
func (m TaskPaneModel) renderTaskList() string {
	var b strings.Builder

	title := StyleTitle.Render("Tasks")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(listWidth, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.order) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		visible := m.order
		if rows := m.height - 6; rows > 0 && len(visible) > rows {
			visible = visible[len(visible)-rows:]
		}
		for _, id := range visible {
			task := m.tasks[id]
			name := task.ID
			if len(name) > listWidth-6 {
				name = name[:listWidth-9] + "..."
			}
			b.WriteString(fmt.Sprintf("%s %s\n", StatusIcon(task.Status), name))
		}
	}

	return lipgloss.NewStyle().
		Width(listWidth).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled status indicator.
func StatusIcon(status string) string {
	switch status {
	case "running":
		return StyleStatusRunning.Render("●")
	case "completed":
		return StyleStatusComplete.Render("✓")
	case "failed":
		return StyleStatusFailed.Render("✗")
	default:
		return StyleStatusPending.Render("○")
	}
}

// SetSize updates the pane dimensions.
func (m *TaskPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h

	viewportWidth := max(w-listWidth-4, 10)
	viewportHeight := max(h-4, 5)
	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetFocused updates the focus state.
func (m *TaskPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

// Task returns the display state of a task, if seen.
func (m TaskPaneModel) Task(id string) (TaskState, bool) {
	state, ok := m.tasks[id]
	if !ok {
		return TaskState{}, false
	}
	return *state, true
}

// Log returns the event log lines currently kept.
func (m TaskPaneModel) Log() []string {
	return append([]string(nil), m.log...)
}
