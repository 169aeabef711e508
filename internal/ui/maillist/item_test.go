package maillist

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/emersion/go-imap/v2"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

var renderNow = time.Date(2021, 3, 1, 15, 0, 0, 0, time.UTC)

func testRecord(mbox mailbox.ID, uid uint32, subject, name, body string, date time.Time) mail.Record {
	raw := &mail.Raw{
		UID: uid,
		Envelope: &imap.Envelope{
			Subject: subject,
			Date:    date,
			From:    []imap.Address{{Name: name, Mailbox: "alice", Host: "example.com"}},
		},
		BodyStructure: &imap.BodyStructureSinglePart{Type: "text", Subtype: "plain"},
		Text:          []byte(body),
	}
	return mail.New(raw, mbox, time.UTC)
}

func TestItemDelegateRender(t *testing.T) {
	long := "Cheap watches for everyone on the list today only"

	tests := []struct {
		name        string
		record      mail.Record
		marked      bool
		showMailbox bool
		want        []string
		notWant     []string
	}{
		{
			name:   "same day shows time and truncates",
			record: testRecord(mailbox.Inbox, 1, long, "Alice", long, time.Date(2021, 3, 1, 11, 0, 0, 0, time.UTC)),
			want: []string{
				"Cheap watches for everyone on the list to...",
				"Alice",
				"11:00",
				"○",
			},
			notWant: []string{"01.03.2021", "today only"},
		},
		{
			name:   "other day shows date and time",
			record: testRecord(mailbox.Inbox, 2, "Welcome", "Alice", "hello list", time.Date(2021, 2, 27, 12, 0, 0, 0, time.UTC)),
			want:   []string{"Welcome", "27.02.2021 12:00", "hello list"},
		},
		{
			name:   "missing name falls back to address",
			record: testRecord(mailbox.Failed, 3, "Bounce", "", "undeliverable", renderNow),
			want:   []string{"alice@example.com", "15:00"},
		},
		{
			name:        "marked item in the all view",
			record:      testRecord(mailbox.Spam, 4, "Buy now", "Bob", "spam", renderNow),
			marked:      true,
			showMailbox: true,
			want:        []string{"✓", "Spam", "Buy now"},
			notWant:     []string{"○"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := MailItem{Record: tt.record}
			d := ItemDelegate{
				marked:      map[MailRef]bool{},
				showMailbox: tt.showMailbox,
				locale:      mail.DefaultLocale,
				now:         func() time.Time { return renderNow },
			}
			if tt.marked {
				d.marked[item.Ref()] = true
			}

			l := list.New([]list.Item{item}, d, 120, 10)
			var buf bytes.Buffer
			d.Render(&buf, l, 0, item)
			out := buf.String()

			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Expected output to contain %q, got %q", want, out)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(out, notWant) {
					t.Errorf("Expected output not to contain %q, got %q", notWant, out)
				}
			}
		})
	}
}

func TestMailItemAccessors(t *testing.T) {
	item := MailItem{Record: testRecord(mailbox.Spam, 9, "Subject", "Alice", "body", renderNow)}

	if ref := item.Ref(); ref.Mailbox != mailbox.Spam || ref.UID != 9 {
		t.Errorf("Expected SPAMMING/9, got %+v", ref)
	}
	if item.FilterValue() != "Subject" {
		t.Errorf("Expected filter value Subject, got %q", item.FilterValue())
	}
	if item.Description() != "body" {
		t.Errorf("Expected description body, got %q", item.Description())
	}
}
