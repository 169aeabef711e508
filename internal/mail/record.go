package mail

import (
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"github.com/nhle/mailbox-admin/internal/mailbox"
)

// Record is a single message as shown to administrators. It is built
// once from raw fetch data and never modified afterwards; UID and
// Mailbox together identify it.
type Record struct {
	uid         uint32
	subject     string
	senderName  string
	senderEmail string
	date        time.Time
	body        string
	mailbox     mailbox.ID
}

// Empty returns the record used when a message could not be found.
func Empty(mbox mailbox.ID) Record {
	return Record{mailbox: mbox}
}

// New builds a Record from raw fetch data. A nil raw yields the empty
// record. Fields that cannot be extracted are left empty; construction
// itself never fails. The date is converted to loc, or to the local
// zone when loc is nil.
func New(raw *Raw, mbox mailbox.ID, loc *time.Location) Record {
	if raw == nil {
		return Empty(mbox)
	}
	if loc == nil {
		loc = time.Local
	}

	r := Record{
		uid:     raw.UID,
		mailbox: mbox,
	}

	if env := raw.Envelope; env != nil {
		r.subject = env.Subject
		if !env.Date.IsZero() {
			r.date = env.Date.In(loc)
		}
		if sender, ok := firstSender(env); ok {
			r.senderName = sender.Name
			r.senderEmail = senderAddress(sender)
		}
	}

	r.body = extractBody(raw)

	return r
}

// firstSender returns the first Sender entry, falling back to From for
// servers that leave Sender empty.
func firstSender(env *imap.Envelope) (imap.Address, bool) {
	if len(env.Sender) > 0 {
		return env.Sender[0], true
	}
	if len(env.From) > 0 {
		return env.From[0], true
	}
	return imap.Address{}, false
}

func senderAddress(a imap.Address) string {
	if a.Mailbox == "" && a.Host == "" {
		return ""
	}
	return a.Mailbox + "@" + a.Host
}

// extractBody uses the TEXT section directly for text/* messages and
// otherwise looks for a text/plain part in the full message.
func extractBody(raw *Raw) string {
	if raw.BodyStructure != nil && isText(raw.BodyStructure.MediaType()) {
		return string(raw.Text)
	}
	return textPart(raw.Message)
}

func isText(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "text/")
}

// UID returns the server-assigned UID, 0 for the empty record.
func (r Record) UID() uint32 { return r.uid }

// Subject returns the envelope subject.
func (r Record) Subject() string { return r.subject }

// SenderName returns the display name of the first sender.
func (r Record) SenderName() string { return r.senderName }

// SenderEmail returns local-part@host of the first sender.
func (r Record) SenderEmail() string { return r.senderEmail }

// Date returns the message date, zero when it was absent or invalid.
func (r Record) Date() time.Time { return r.date }

// Body returns the extracted plain text body.
func (r Record) Body() string { return r.body }

// Mailbox returns the mailbox the record was fetched from.
func (r Record) Mailbox() mailbox.ID { return r.mailbox }

// IsEmpty reports whether r is the not-found record.
func (r Record) IsEmpty() bool { return r.uid == 0 }
