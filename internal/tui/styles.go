package tui

import "github.com/charmbracelet/lipgloss"

// ANSI palette indices. lipgloss takes numbers or hex, not color names.
const (
	colorRed     = lipgloss.Color("1")
	colorGreen   = lipgloss.Color("2")
	colorYellow  = lipgloss.Color("3")
	colorAccent  = lipgloss.Color("62")
	colorOrange  = lipgloss.Color("214")
	colorDim     = lipgloss.Color("240")
	colorDimText = lipgloss.Color("241")
)

func paneBorder(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(c)
}

func statusText(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// Pane borders
var (
	StyleFocusedBorder   = paneBorder(colorAccent)
	StyleUnfocusedBorder = paneBorder(colorDim)
)

// Task status and log styles
var (
	StyleStatusRunning  = statusText(colorYellow)
	StyleStatusComplete = statusText(colorGreen)
	StyleStatusFailed   = statusText(colorRed)
	StyleStatusPending  = lipgloss.NewStyle().Foreground(colorDim)
	StyleWarning        = lipgloss.NewStyle().Foreground(colorOrange)
)

var (
	StyleTitle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	StyleHelp  = lipgloss.NewStyle().Foreground(colorDimText)
)
