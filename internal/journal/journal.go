// Package journal keeps an audit trail of the move and delete actions
// administrators run through the front ends.
package journal

import (
	"context"
	"time"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

// Action is the kind of administrative action.
type Action string

const (
	ActionMove   Action = "move"
	ActionDelete Action = "delete"
)

// Entry is one recorded action on a single message.
type Entry struct {
	ID        string    `db:"id" json:"id"`
	Action    Action    `db:"action" json:"action"`
	UID       uint32    `db:"uid" json:"uid"`
	Mailbox   string    `db:"mailbox" json:"mailbox"`
	Target    string    `db:"target" json:"target,omitempty"`
	Outcome   string    `db:"outcome" json:"outcome"`
	Error     string    `db:"error" json:"error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewEntry builds an entry from the result of a service call.
func NewEntry(action Action, uid uint32, mbox, target mailbox.ID, outcome mail.Outcome, err error) Entry {
	e := Entry{
		Action:  action,
		UID:     uid,
		Mailbox: string(mbox),
		Target:  string(target),
		Outcome: outcome.String(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Journal records and lists entries.
type Journal interface {
	Record(ctx context.Context, entries ...Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Nop is the journal used when journaling is disabled.
type Nop struct{}

func (Nop) Record(context.Context, ...Entry) error       { return nil }
func (Nop) Recent(context.Context, int) ([]Entry, error) { return []Entry{}, nil }
func (Nop) Close() error                                 { return nil }
