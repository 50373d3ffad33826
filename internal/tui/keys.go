package tui

// Keybinding constants
const (
	KeyTab   = "tab"
	KeyQuit  = "q"
	KeyCtrlC = "ctrl+c"
)

// HelpView returns a one-line help bar with common keybindings.
func HelpView() string {
	return StyleHelp.Render("Tab: cycle focus | j/k: scroll | q: quit")
}
