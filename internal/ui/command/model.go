package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/theme"
)

const maxHistory = 20

// Command describes one palette command.
type Command struct {
	Name    string
	Aliases []string
	Usage   string
	Help    string
}

func (c Command) matches(name string) bool {
	if c.Name == name {
		return true
	}
	for _, alias := range c.Aliases {
		if alias == name {
			return true
		}
	}
	return false
}

// CommandMsg is emitted when the user executes a command. Name is the
// canonical command name when the typed name is a known alias.
type CommandMsg struct {
	Name string
	Args []string
}

// Model is the command palette view.
type Model struct {
	input    textinput.Model
	commands []Command
	history  []string
	recall   int
	width    int
	height   int
}

// New creates a command palette for commands. completions are offered
// as inline suggestions next to the command names, e.g. "open INBOX".
func New(commands []Command, completions []string, width, height int) Model {
	suggestions := make([]string, 0, len(commands)+len(completions))
	for _, c := range commands {
		suggestions = append(suggestions, c.Name)
	}
	suggestions = append(suggestions, completions...)

	ti := textinput.New()
	ti.Placeholder = "type a command, tab completes"
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.SetSuggestions(suggestions)
	ti.Focus()
	ti.Width = width - 6

	return Model{
		input:    ti,
		commands: commands,
		width:    width,
		height:   height,
	}
}

// Parse splits a command line into name and arguments.
func Parse(line string) (CommandMsg, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandMsg{}, false
	}
	return CommandMsg{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// Lookup returns the command named name or having it as an alias.
func (m Model) Lookup(name string) (Command, bool) {
	for _, c := range m.commands {
		if c.matches(name) {
			return c, true
		}
	}
	return Command{}, false
}

// History returns the executed lines, oldest first.
func (m Model) History() []string {
	return m.history
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			line := m.input.Value()
			m.input.Reset()
			cmd, ok := Parse(line)
			if !ok {
				return m, nil
			}
			m.remember(strings.TrimSpace(line))
			if c, known := m.Lookup(cmd.Name); known {
				cmd.Name = c.Name
			}
			return m, func() tea.Msg { return cmd }
		case "up":
			m.step(-1)
			return m, nil
		case "down":
			m.step(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) remember(line string) {
	if n := len(m.history); n == 0 || m.history[n-1] != line {
		m.history = append(m.history, line)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.recall = len(m.history)
}

// step moves through the history; stepping past the newest entry clears
// the input.
func (m *Model) step(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.recall = min(max(m.recall+delta, 0), len(m.history))
	if m.recall == len(m.history) {
		m.input.Reset()
		return
	}
	m.input.SetValue(m.history[m.recall])
	m.input.CursorEnd()
}

// View renders the palette with the commands matching the typed prefix.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	usageStyle := lipgloss.NewStyle().Foreground(theme.ColorBlue).Width(18)

	rows := []string{titleStyle.Render("Command Palette"), m.input.View(), ""}

	prefix := ""
	if fields := strings.Fields(m.input.Value()); len(fields) > 0 {
		prefix = strings.ToLower(fields[0])
	}
	for _, c := range m.commands {
		if prefix != "" && !strings.HasPrefix(c.Name, prefix) && !c.matches(prefix) {
			continue
		}
		usage := c.Usage
		if usage == "" {
			usage = c.Name
		}
		rows = append(rows, usageStyle.Render(usage)+theme.DimmedStyle.Render(c.Help))
	}

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	m.recall = len(m.history)
	return m.input.Focus()
}
