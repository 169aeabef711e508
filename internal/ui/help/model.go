package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/keys"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/theme"
)

// Model is the help overlay view. Besides the key bindings it lists the
// mailboxes the account knows about.
type Model struct {
	keys      *keys.KeyMap
	help      help.Model
	mailboxes []mailbox.ID
	width     int
	height    int
}

// New creates a new help view model.
func New(k *keys.KeyMap, mailboxes []mailbox.ID, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:      k,
		help:      h,
		mailboxes: mailboxes,
		width:     width,
		height:    height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	var boxes []string
	for i, id := range m.mailboxes {
		boxes = append(boxes, fmt.Sprintf("%d %s", i+1, theme.MailboxStyle(id).Render(mailbox.Label(id))))
	}

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Mailboxes"),
		strings.Join(boxes, "  "),
		theme.HelpStyle.Render("0 shows all mailboxes at once"),
	)

	return theme.DetailPanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
