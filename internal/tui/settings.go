package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/taskloader/internal/config"
	"github.com/aristath/taskloader/internal/logging"
)

// SettingsModel edits the loader settings in a form and saves them to the
// global or project config file.
type SettingsModel struct {
	form        *huh.Form
	globalPath  string
	projectPath string
	width       int
	height      int
	saved       bool
	savedTo     string
	err         error

	// Bound by pointer: the model is copied on every Update
	fields  *settingsFields
	initial settingsFields // Prefilled values; only edited fields are saved
}

// settingsFields are the form's bindings (strings for Huh).
type settingsFields struct {
	saveTarget   string
	workers      string
	logLevel     string
	journalPath  string
	retryEnabled bool
}

// NewSettingsModel creates a settings form prefilled from cfg.
func NewSettingsModel(cfg *config.Config, globalPath, projectPath string) SettingsModel {
	m := SettingsModel{
		globalPath:  globalPath,
		projectPath: projectPath,
		fields: &settingsFields{
			saveTarget:   "project",
			workers:      strconv.Itoa(cfg.Workers),
			logLevel:     cfg.LogLevel,
			journalPath:  cfg.JournalPath,
			retryEnabled: cfg.Retry.Enabled,
		},
	}

	m.initial = *m.fields
	m.buildForm()
	return m
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsModel) buildForm() {
	f := m.fields
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Project (.taskloader/config.json)", "project"),
					huh.NewOption("Global (~/.taskloader/config.json)", "global"),
				).
				Value(&f.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("workers").
				Title("Workers").
				Description("0 runs one worker per CPU").
				Value(&f.workers).
				Validate(validateWorkers),

			huh.NewSelect[string]().
				Key("logLevel").
				Title("Log Level").
				Options(huh.NewOptions(logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, logging.LevelError)...).
				Value(&f.logLevel),

			huh.NewInput().
				Key("journalPath").
				Title("Journal Path").
				Value(&f.journalPath).
				Placeholder(".taskloader/journal.db"),

			huh.NewConfirm().
				Key("retryEnabled").
				Title("Retry failing tasks?").
				Value(&f.retryEnabled),
		).Title("Loader Settings"),
	)
}

func validateWorkers(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("workers must be a number")
	}
	if n < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

// Init initializes the settings form.
func (m SettingsModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings form.
func (m SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", KeyCtrlC:
			// Cancel without saving
			return m, tea.Quit
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.save()
		return m, tea.Quit
	case huh.StateAborted:
		return m, tea.Quit
	}

	return m, cmd
}

// save writes the edited fields into the chosen target file. The form is
// prefilled from the merged configuration, so untouched fields are left out:
// they may come from another file or from the environment.
func (m *SettingsModel) save() {
	values, err := m.changes()
	if err != nil {
		m.err = err
		return
	}

	target := m.globalPath
	if m.fields.saveTarget == "project" {
		target = m.projectPath
	}

	if err := config.Update(target, values); err != nil {
		m.err = err
		return
	}
	m.saved = true
	m.savedTo = target
}

// changes returns the edited fields keyed by config key.
func (m *SettingsModel) changes() (map[string]any, error) {
	f, initial := m.fields, m.initial
	values := make(map[string]any)

	if strings.TrimSpace(f.workers) != strings.TrimSpace(initial.workers) {
		if err := validateWorkers(f.workers); err != nil {
			return nil, err
		}
		workers, _ := strconv.Atoi(strings.TrimSpace(f.workers))
		values["workers"] = workers
	}
	if f.logLevel != initial.logLevel {
		if !logging.ValidLevel(f.logLevel) {
			return nil, fmt.Errorf("unknown log level %q", f.logLevel)
		}
		values["log_level"] = f.logLevel
	}
	// An empty path turns journaling off
	if journal := strings.TrimSpace(f.journalPath); journal != strings.TrimSpace(initial.journalPath) {
		values["journal_path"] = journal
	}
	if f.retryEnabled != initial.retryEnabled {
		values["retry.enabled"] = f.retryEnabled
	}
	return values, nil
}

// View renders the settings form.
func (m SettingsModel) View() string {
	var content string

	switch {
	case m.saved:
		content = StyleStatusComplete.Render("✓ Settings saved to " + m.savedTo)
	case m.err != nil:
		content = StyleStatusFailed.Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	default:
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(1, 2)
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorAccent).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content)) + "\n"
}

// SetSize updates the dimensions of the settings form.
func (m *SettingsModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil && w > 8 && h > 8 {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// Saved reports whether the settings were written, and where.
func (m SettingsModel) Saved() (string, bool) { return m.savedTo, m.saved }

// Err returns the error from the last save attempt.
func (m SettingsModel) Err() error { return m.err }
