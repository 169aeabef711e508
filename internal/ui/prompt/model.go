// Package prompt hosts the huh forms that confirm move and delete actions.
package prompt

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/theme"
	"github.com/nhle/mailbox-admin/internal/ui/maillist"
)

// Mode is the kind of action being confirmed.
type Mode int

const (
	ModeNone Mode = iota
	ModeMove
	ModeDelete
)

// MoveConfirmedMsg is sent when a destination was chosen.
type MoveConfirmedMsg struct {
	Ref maillist.MailRef
	To  mailbox.ID
}

// DeleteConfirmedMsg is sent when the deletion was confirmed.
type DeleteConfirmedMsg struct {
	Refs []maillist.MailRef
}

// CancelMsg is sent when the prompt was aborted or declined.
type CancelMsg struct{}

type formValues struct {
	target  string
	confirm bool
}

// Model wraps the active huh form.
type Model struct {
	mode     Mode
	form     *huh.Form
	resolver *mailbox.Resolver

	moveRef    maillist.MailRef
	deleteRefs []maillist.MailRef

	// Form field values (huh binds to these). Held behind a pointer so
	// copies of the model share them with the form.
	values *formValues

	width, height int
}

// New creates an idle prompt.
func New(resolver *mailbox.Resolver, width, height int) Model {
	return Model{resolver: resolver, values: &formValues{}, width: width, height: height}
}

// Mode returns the action being confirmed.
func (m Model) Mode() Mode {
	return m.mode
}

// StartMove builds the destination select for ref. The source mailbox
// is not offered.
func (m *Model) StartMove(ref maillist.MailRef) tea.Cmd {
	m.mode = ModeMove
	m.moveRef = ref
	m.values.target = ""

	var options []huh.Option[string]
	for _, id := range m.resolver.Known() {
		if id == ref.Mailbox {
			continue
		}
		options = append(options, huh.NewOption(mailbox.Label(id), string(id)))
	}
	if len(options) > 0 {
		m.values.target = options[0].Value
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Move mail").
				Description(fmt.Sprintf("Move UID %d from %s to", ref.UID, mailbox.Label(ref.Mailbox))).
				Options(options...).
				Value(&m.values.target),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)

	return m.form.Init()
}

// StartDelete builds the confirmation for refs.
func (m *Model) StartDelete(refs []maillist.MailRef) tea.Cmd {
	m.mode = ModeDelete
	m.deleteRefs = refs
	m.values.confirm = false

	title := fmt.Sprintf("Delete UID %d from %s?", refs[0].UID, mailbox.Label(refs[0].Mailbox))
	if len(refs) > 1 {
		title = fmt.Sprintf("Delete %d mails?", len(refs))
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description("Deleted mails are expunged and cannot be restored.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&m.values.confirm),
		),
	).WithWidth(m.formWidth()).WithShowHelp(true)

	return m.form.Init()
}

// Update forwards msg to the active form and reports its result.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		return m.finish()
	case huh.StateAborted:
		m.reset()
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

func (m Model) finish() (Model, tea.Cmd) {
	mode := m.mode
	ref, refs := m.moveRef, m.deleteRefs
	target, confirm := m.values.target, m.values.confirm
	m.reset()

	switch {
	case mode == ModeMove && target != "":
		to := m.resolver.Resolve(target)
		return m, func() tea.Msg { return MoveConfirmedMsg{Ref: ref, To: to} }
	case mode == ModeDelete && confirm:
		return m, func() tea.Msg { return DeleteConfirmedMsg{Refs: refs} }
	default:
		return m, func() tea.Msg { return CancelMsg{} }
	}
}

func (m *Model) reset() {
	m.mode = ModeNone
	m.form = nil
	m.moveRef = maillist.MailRef{}
	m.deleteRefs = nil
}

// View renders the active form in a panel.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(theme.DetailPanelStyle.Render(m.form.View()))
}

// SetSize updates the prompt dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
}

func (m Model) formWidth() int {
	w := m.width - 10
	if w > 70 {
		w = 70
	}
	if w < 30 {
		w = 30
	}
	return w
}
