package detail

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/keys"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/theme"
	"github.com/nhle/mailbox-admin/internal/ui/maillist"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries the loaded mail. An empty record means the
// mail no longer exists.
type DetailLoadedMsg struct {
	Record mail.Record
	Err    error
}

// Model is the mail detail view component.
type Model struct {
	record   *mail.Record
	viewport viewport.Model
	keys     *keys.KeyMap
	locale   mail.Locale
	now      func() time.Time
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(k *keys.KeyMap, locale mail.Locale, now func() time.Time, width, height int) Model {
	if now == nil {
		now = time.Now
	}
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		locale:   locale,
		now:      now,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.SetRecord(msg.Record)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Move):
			if ref, ok := m.ref(); ok {
				return m, func() tea.Msg { return maillist.MoveRequestMsg{Ref: ref} }
			}
			return m, nil

		case key.Matches(msg, m.keys.Delete):
			if ref, ok := m.ref(); ok {
				return m, func() tea.Msg { return maillist.DeleteRequestMsg{Refs: []maillist.MailRef{ref}} }
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) ref() (maillist.MailRef, bool) {
	if m.record == nil || m.record.IsEmpty() {
		return maillist.MailRef{}, false
	}
	return maillist.MailRef{Mailbox: m.record.Mailbox(), UID: m.record.UID()}, true
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return placeholder.Render("Loading mail...")
	}
	if m.record == nil || m.record.IsEmpty() {
		return placeholder.Render("No mail selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.record == nil {
		return ""
	}

	r := m.record
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	subject := r.Subject()
	if subject == "" {
		subject = "(no subject)"
	}
	sections = append(sections, titleStyle.Render(subject))
	sections = append(sections, theme.MailboxStyle(r.Mailbox()).Render(mailbox.Label(r.Mailbox())))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(7)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label+":")+" "+valStyle.Render(value))
	}

	from := r.SenderEmail()
	if r.SenderName() != "" {
		from = fmt.Sprintf("%s <%s>", r.SenderName(), r.SenderEmail())
	}
	meta("From", from)
	meta("Date", r.DateFormatted(m.now(), m.locale))
	meta("UID", fmt.Sprint(r.UID()))

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	body := r.Body()
	if strings.TrimSpace(body) == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No text content")
	} else if m.width > 4 {
		body = lipgloss.NewStyle().Width(m.width - 4).Render(body)
	}
	sections = append(sections, body)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetRecord updates the mail being displayed and re-renders the content.
func (m *Model) SetRecord(r mail.Record) {
	m.record = &r
	m.loading = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Record returns the displayed mail.
func (m Model) Record() (mail.Record, bool) {
	if m.record == nil || m.record.IsEmpty() {
		return mail.Record{}, false
	}
	return *m.record, true
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.record != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
