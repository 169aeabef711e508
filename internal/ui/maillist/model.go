package maillist

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/keys"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mails"
	"github.com/nhle/mailbox-admin/internal/theme"
)

// SelectedMailMsg is sent when the user opens a mail.
type SelectedMailMsg struct {
	Ref MailRef
}

// MoveRequestMsg asks the parent to prompt for a move destination.
type MoveRequestMsg struct {
	Ref MailRef
}

// DeleteRequestMsg asks the parent to confirm deleting Refs.
type DeleteRequestMsg struct {
	Refs []MailRef
}

// PageRequestMsg asks the parent to load another page.
type PageRequestMsg struct {
	Page int
}

// Model is the mail list of one tab.
type Model struct {
	list     list.Model
	keys     *keys.KeyMap
	delegate ItemDelegate
	marked   map[MailRef]bool

	page     int
	pageSize int
	total    int
	hasMore  bool
	paged    bool

	loading bool
	width   int
	height  int
}

// New creates a new mail list model.
func New(k *keys.KeyMap, locale mail.Locale, now func() time.Time, width, height int) Model {
	if now == nil {
		now = time.Now
	}
	marked := make(map[MailRef]bool)
	delegate := ItemDelegate{marked: marked, locale: locale, now: now}

	l := list.New([]list.Item{}, delegate, width, height-1)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return Model{
		list:     l,
		keys:     k,
		delegate: delegate,
		marked:   marked,
		page:     1,
		width:    width,
		height:   height,
	}
}

// SetListing replaces the items with one page of a single mailbox.
func (m *Model) SetListing(l *mails.Listing) tea.Cmd {
	m.loading = false
	m.paged = true
	m.page = l.Page
	m.pageSize = l.PageSize
	m.total = l.Total
	m.hasMore = l.HasMore
	m.delegate.showMailbox = false
	m.list.SetDelegate(m.delegate)
	return m.setRecords(l.Mails)
}

// SetRecords replaces the items with unpaged records from several
// mailboxes, as shown on the "All" tab.
func (m *Model) SetRecords(records []mail.Record) tea.Cmd {
	m.loading = false
	m.paged = false
	m.page = 1
	m.total = len(records)
	m.hasMore = false
	m.delegate.showMailbox = true
	m.list.SetDelegate(m.delegate)
	return m.setRecords(records)
}

func (m *Model) setRecords(records []mail.Record) tea.Cmd {
	present := make(map[MailRef]bool, len(records))
	items := make([]list.Item, len(records))
	for i, r := range records {
		item := MailItem{Record: r}
		items[i] = item
		present[item.Ref()] = true
	}
	for ref := range m.marked {
		if !present[ref] {
			delete(m.marked, ref)
		}
	}
	return m.list.SetItems(items)
}

// SetLoading shows the loading placeholder until the next Set call.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// Page returns the current page number.
func (m Model) Page() int {
	return m.page
}

// Len returns the number of items shown.
func (m Model) Len() int {
	return len(m.list.Items())
}

// Marked returns the marked mails in list order.
func (m Model) Marked() []MailRef {
	var refs []MailRef
	for _, it := range m.list.Items() {
		if mi, ok := it.(MailItem); ok && m.marked[mi.Ref()] {
			refs = append(refs, mi.Ref())
		}
	}
	return refs
}

// Selected returns the mail under the cursor.
func (m Model) Selected() (MailItem, bool) {
	mi, ok := m.list.SelectedItem().(MailItem)
	return mi, ok
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the mail list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return SelectedMailMsg{Ref: item.Ref()} }

	case key.Matches(msg, m.keys.Mark):
		item, ok := m.Selected()
		if !ok {
			return m, nil
		}
		ref := item.Ref()
		if m.marked[ref] {
			delete(m.marked, ref)
		} else {
			m.marked[ref] = true
		}
		m.list.CursorDown()
		return m, nil

	case key.Matches(msg, m.keys.Move):
		item, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return MoveRequestMsg{Ref: item.Ref()} }

	case key.Matches(msg, m.keys.Delete):
		refs := m.Marked()
		if len(refs) == 0 {
			item, ok := m.Selected()
			if !ok {
				return m, nil
			}
			refs = []MailRef{item.Ref()}
		}
		return m, func() tea.Msg { return DeleteRequestMsg{Refs: refs} }

	case key.Matches(msg, m.keys.NextPage):
		if !m.paged || !m.hasMore {
			return m, nil
		}
		next := m.page + 1
		return m, func() tea.Msg { return PageRequestMsg{Page: next} }

	case key.Matches(msg, m.keys.PrevPage):
		if !m.paged || m.page <= 1 {
			return m, nil
		}
		prev := m.page - 1
		return m, func() tea.Msg { return PageRequestMsg{Page: prev} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list and its pagination footer.
func (m Model) View() string {
	if m.loading {
		return m.placeholder("Loading mails...")
	}
	if len(m.list.Items()) == 0 {
		return m.placeholder("No mails in this mailbox.")
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.list.View(), m.footer())
}

func (m Model) footer() string {
	text := fmt.Sprintf("%d mails", m.total)
	if m.paged && m.pageSize > 0 {
		pages := max((m.total+m.pageSize-1)/m.pageSize, 1)
		text = fmt.Sprintf("page %d/%d · %s", m.page, pages, text)
	}
	if n := len(m.marked); n > 0 {
		text += fmt.Sprintf(" · %d marked", n)
	}
	return theme.HelpStyle.PaddingLeft(2).Render(text)
}

func (m Model) placeholder(text string) string {
	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, max(height-1, 0))
}
