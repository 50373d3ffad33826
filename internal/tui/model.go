package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskloader/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneProgress PaneID = iota
	PaneTasks
)

// DefaultQuitDelay is how long the final view stays up after loading completes.
const DefaultQuitDelay = 1500 * time.Millisecond

const progressPaneHeight = 16

// clockMsg refreshes elapsed time while loading runs.
type clockMsg time.Time

// quitMsg ends the program after loading completed.
type quitMsg struct{}

// busClosedMsg signals the event subscription ended.
type busClosedMsg struct{}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	progressPane ProgressPaneModel
	taskPane     TaskPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	quitDelay    time.Duration
	width        int
	height       int
	quitting     bool
	done         bool
}

// New creates a new TUI model.
// It subscribes to all events from the event bus using SubscribeAll, so it
// must be created before the scheduler starts.
func New(eventBus *events.EventBus) Model {
	return newModel(eventBus.SubscribeAll(1024))
}

func newModel(sub <-chan events.Event) Model {
	m := Model{
		progressPane: NewProgressPaneModel(),
		taskPane:     NewTaskPaneModel(),
		focusedPane:  PaneTasks,
		eventSub:     sub,
		quitDelay:    DefaultQuitDelay,
	}
	m.updateFocusStates()
	return m
}

// WithQuitDelay sets how long the model lingers after completion. A negative
// delay disables quitting on completion.
func (m Model) WithQuitDelay(d time.Duration) Model {
	m.quitDelay = d
	return m
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), clock())
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return busClosedMsg{}
		}
		return event
	}
}

func clock() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 2
			m.updateFocusStates()

		default:
			var cmd tea.Cmd
			m.taskPane, cmd = m.taskPane.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case events.LoadingStartedEvent, events.TaskStartedEvent, events.TaskCompletedEvent, events.WarningEvent:
		m.forward(msg)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.ProgressEvent:
		m.forward(msg)
		if msg.Complete && !m.done {
			m.done = true
			if m.quitDelay >= 0 {
				cmds = append(cmds, tea.Tick(m.quitDelay, func(time.Time) tea.Msg {
					return quitMsg{}
				}))
			}
		}
		cmds = append(cmds, waitForEvent(m.eventSub))

	case clockMsg:
		m.progressPane, _ = m.progressPane.Update(msg)
		if !m.done {
			cmds = append(cmds, clock())
		}

	case quitMsg, busClosedMsg:
		return m, tea.Quit
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) forward(msg tea.Msg) {
	m.progressPane, _ = m.progressPane.Update(msg)
	m.taskPane, _ = m.taskPane.Update(msg)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.progressPane.View(),
		m.taskPane.View(),
		HelpView(),
	)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	availableHeight := m.height - 1 // Help bar
	top := min(progressPaneHeight, availableHeight/2)

	m.progressPane.SetSize(m.width, top)
	m.taskPane.SetSize(m.width, availableHeight-top)
	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.progressPane.SetFocused(m.focusedPane == PaneProgress)
	m.taskPane.SetFocused(m.focusedPane == PaneTasks)
}

// Done reports whether loading completed.
func (m Model) Done() bool { return m.done }

// Failed returns how many failed tasks the model has seen.
func (m Model) Failed() int { return m.progressPane.Failed() }
