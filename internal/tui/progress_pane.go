package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/aristath/taskloader/internal/events"
)

const barWidth = 40

// ProgressPaneModel shows overall loading progress.
type ProgressPaneModel struct {
	bar       progress.Model
	total     int
	completed int
	failed    int
	warnings  int
	workers   int
	fraction  float64
	complete  bool
	message   string
	startedAt time.Time
	elapsed   time.Duration
	width     int
	height    int
	focused   bool
}

// NewProgressPaneModel creates a new progress pane model.
func NewProgressPaneModel() ProgressPaneModel {
	return ProgressPaneModel{
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
	}
}

// Update handles messages for the progress pane.
func (m ProgressPaneModel) Update(msg tea.Msg) (ProgressPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.LoadingStartedEvent:
		m.total = msg.Total
		m.workers = msg.Workers
		m.startedAt = msg.Timestamp

	case events.TaskCompletedEvent:
		if msg.Failed() {
			m.failed++
		}

	case events.ProgressEvent:
		m.completed = msg.Completed
		m.total = msg.Total
		m.fraction = msg.Fraction
		m.message = msg.Message
		if msg.Complete {
			m.complete = true
			m.fraction = 1.0
		}
		m.tick(msg.Timestamp)

	case events.WarningEvent:
		m.warnings++

	case clockMsg:
		if !m.complete {
			m.tick(time.Time(msg))
		}
	}

	return m, nil
}

func (m *ProgressPaneModel) tick(now time.Time) {
	if !m.startedAt.IsZero() {
		m.elapsed = now.Sub(m.startedAt)
	}
}

// View renders the progress pane.
func (m ProgressPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Loading")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.fraction))
	b.WriteString("\n\n")

	status := StyleStatusRunning.Render("running")
	if m.complete {
		status = StyleStatusComplete.Render("complete")
	}
	b.WriteString(fmt.Sprintf("Status:    %s\n", status))
	b.WriteString(fmt.Sprintf("Tasks:     %s/%s\n", humanize.Comma(int64(m.completed)), humanize.Comma(int64(m.total))))
	b.WriteString(fmt.Sprintf("Failed:    %s\n", StyleStatusFailed.Render(fmt.Sprintf("%d", m.failed))))
	if m.warnings > 0 {
		b.WriteString(fmt.Sprintf("Warnings:  %s\n", StyleWarning.Render(fmt.Sprintf("%d", m.warnings))))
	}
	if m.workers > 0 {
		b.WriteString(fmt.Sprintf("Workers:   %d\n", m.workers))
	}
	b.WriteString(fmt.Sprintf("Elapsed:   %s\n", m.elapsed.Round(10*time.Millisecond)))
	if !m.startedAt.IsZero() {
		b.WriteString(StyleStatusPending.Render("Started " + humanize.Time(m.startedAt)))
		b.WriteString("\n")
	}
	if m.message != "" && !m.complete {
		b.WriteString("\n")
		b.WriteString(m.message)
		b.WriteString("\n")
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *ProgressPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *ProgressPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

// Complete reports whether the completing progress event was seen.
func (m ProgressPaneModel) Complete() bool { return m.complete }

// Failed returns the number of failed tasks seen so far.
func (m ProgressPaneModel) Failed() int { return m.failed }
