package web

import (
	"time"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/mails"
)

type mailView struct {
	UID              uint32     `json:"uid"`
	Mailbox          mailbox.ID `json:"mailbox"`
	Subject          string     `json:"subject"`
	SubjectFormatted string     `json:"subject_formatted"`
	SenderName       string     `json:"sender_name"`
	SenderEmail      string     `json:"sender_email"`
	Date             *time.Time `json:"date,omitempty"`
	DateFormatted    string     `json:"date_formatted"`
	Preview          string     `json:"preview"`
	Body             string     `json:"body,omitempty"`
}

type listingView struct {
	Mailbox  mailbox.ID `json:"mailbox"`
	Label    string     `json:"label"`
	Mails    []mailView `json:"mails"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	PageSize int        `json:"per_page"`
	HasMore  bool       `json:"has_more"`
}

type mailboxView struct {
	ID    mailbox.ID `json:"id"`
	Label string     `json:"label"`
	Count int        `json:"count"`
	Mails []mailView `json:"mails"`
}

type overviewView struct {
	Mailboxes []mailboxView `json:"mailboxes"`
	Partial   bool          `json:"partial"`
}

func (h *Handler) mailView(r mail.Record, withBody bool) mailView {
	v := mailView{
		UID:              r.UID(),
		Mailbox:          r.Mailbox(),
		Subject:          r.Subject(),
		SubjectFormatted: r.SubjectFormatted(),
		SenderName:       r.SenderName(),
		SenderEmail:      r.SenderEmail(),
		DateFormatted:    r.DateFormatted(h.now(), h.locale),
		Preview:          r.Preview(),
	}
	if d := r.Date(); !d.IsZero() {
		v.Date = &d
	}
	if withBody {
		v.Body = r.Body()
	}
	return v
}

func (h *Handler) mailViews(records []mail.Record) []mailView {
	views := make([]mailView, 0, len(records))
	for _, r := range records {
		views = append(views, h.mailView(r, false))
	}
	return views
}

func (h *Handler) listingView(l *mails.Listing) listingView {
	return listingView{
		Mailbox:  l.Mailbox,
		Label:    mailbox.Label(l.Mailbox),
		Mails:    h.mailViews(l.Mails),
		Total:    l.Total,
		Page:     l.Page,
		PageSize: l.PageSize,
		HasMore:  l.HasMore,
	}
}
