package mail

import "github.com/emersion/go-imap/v2"

// Raw holds the fetch data of a single message as returned by the IMAP
// session, before any interpretation.
type Raw struct {
	UID           uint32
	Envelope      *imap.Envelope
	BodyStructure imap.BodyStructure

	// Text is the BODY[TEXT] section.
	Text []byte

	// Message is the full RFC 822 message (BODY[]).
	Message []byte
}

// Outcome is the result of a best-effort operation on a single message.
type Outcome int

const (
	// Applied means the server carried out the operation.
	Applied Outcome = iota
	// NotFound means the UID does not exist in the mailbox.
	NotFound
	// Failed means the server rejected the operation or the connection broke.
	Failed
	// Skipped means there was nothing to do.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case NotFound:
		return "not_found"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}
