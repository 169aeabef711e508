package maillist

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/theme"
)

// MailRef identifies a message across mailboxes.
type MailRef struct {
	Mailbox mailbox.ID
	UID     uint32
}

// MailItem wraps a mail.Record so it can be used in a bubbles/list.
type MailItem struct {
	Record mail.Record
}

// Ref returns the mailbox and UID of the item.
func (i MailItem) Ref() MailRef {
	return MailRef{Mailbox: i.Record.Mailbox(), UID: i.Record.UID()}
}

// FilterValue returns the string used for fuzzy filtering.
func (i MailItem) FilterValue() string { return i.Record.Subject() }

// Title returns the formatted subject.
func (i MailItem) Title() string { return i.Record.SubjectFormatted() }

// Description returns the body preview.
func (i MailItem) Description() string { return i.Record.Preview() }

// ItemDelegate implements list.ItemDelegate for rendering mails.
type ItemDelegate struct {
	// marked is shared by reference with the Model so updates are visible.
	marked      map[MailRef]bool
	showMailbox bool
	locale      mail.Locale
	now         func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws the subject line and the preview line of a mail.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	mi, ok := item.(MailItem)
	if !ok {
		return
	}
	r := mi.Record

	prefix := "○"
	if d.marked[mi.Ref()] {
		prefix = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("✓")
	}

	badge := ""
	if d.showMailbox {
		badge = theme.MailboxStyle(r.Mailbox()).Render(mailbox.Label(r.Mailbox())) + " "
	}

	sender := r.SenderName()
	if sender == "" {
		sender = r.SenderEmail()
	}
	senderStr := lipgloss.NewStyle().Foreground(theme.ColorBlue).Render(sender)
	dateStr := theme.DimmedStyle.Render(r.DateFormatted(d.now(), d.locale))

	first := fmt.Sprintf("%s %s%s  %s  %s", prefix, badge, r.SubjectFormatted(), senderStr, dateStr)
	second := "  " + theme.DimmedStyle.Render(strings.ReplaceAll(r.Preview(), "\n", " "))

	style := theme.ListItemStyle
	if index == m.Index() {
		style = theme.SelectedItemStyle
	}

	fmt.Fprint(w, style.Render(first+"\n"+second))
}
