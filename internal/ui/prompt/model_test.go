package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/ui/maillist"
)

func TestStartMoveExcludesSourceMailbox(t *testing.T) {
	m := New(mailbox.NewResolver("LIST-A"), 80, 24)
	m.StartMove(maillist.MailRef{Mailbox: mailbox.Spam, UID: 3})

	if m.Mode() != ModeMove {
		t.Fatalf("Expected ModeMove, got %v", m.Mode())
	}
	if m.values.target != string(mailbox.Inbox) {
		t.Errorf("Expected default target INBOX, got %q", m.values.target)
	}
}

func TestFinishMove(t *testing.T) {
	m := New(mailbox.NewResolver(), 80, 24)
	m.StartMove(maillist.MailRef{Mailbox: mailbox.Spam, UID: 3})
	m.values.target = "failed"

	m, cmd := m.finish()
	if m.Mode() != ModeNone {
		t.Errorf("Expected prompt to reset, got mode %v", m.Mode())
	}

	msg, ok := cmd().(MoveConfirmedMsg)
	if !ok {
		t.Fatalf("Expected MoveConfirmedMsg, got %T", cmd())
	}
	if msg.To != mailbox.Failed || msg.Ref.UID != 3 {
		t.Errorf("Unexpected move %+v", msg)
	}
}

func TestFinishDelete(t *testing.T) {
	refs := []maillist.MailRef{{Mailbox: mailbox.Failed, UID: 1}, {Mailbox: mailbox.Failed, UID: 2}}

	tests := []struct {
		name    string
		confirm bool
		want    tea.Msg
	}{
		{"confirmed", true, DeleteConfirmedMsg{Refs: refs}},
		{"declined", false, CancelMsg{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(mailbox.NewResolver(), 80, 24)
			m.StartDelete(refs)
			m.values.confirm = tt.confirm

			_, cmd := m.finish()
			got := cmd()
			switch want := tt.want.(type) {
			case DeleteConfirmedMsg:
				msg, ok := got.(DeleteConfirmedMsg)
				if !ok || len(msg.Refs) != len(want.Refs) {
					t.Errorf("Expected %+v, got %+v", want, got)
				}
			case CancelMsg:
				if _, ok := got.(CancelMsg); !ok {
					t.Errorf("Expected CancelMsg, got %T", got)
				}
			}
		})
	}
}
