// Package web exposes the mailbox service as a small JSON API. Mutating
// requests always answer with a redirect to the listing; their outcome is
// reported in the X-Mail-Outcome header.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/OliverSchlueter/goutils/problems"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/journal"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/mails"
)

// OutcomeHeader carries the result of move and delete requests.
const OutcomeHeader = "X-Mail-Outcome"

// Problem details sent for failed service calls.
const (
	DetailUnreachable = "Mail server unreachable"
	DetailFailed      = "Mail operation failed"
)

const defaultRequestTimeout = 60 * time.Second

// Options configures a Handler.
type Options struct {
	Journal        journal.Journal
	Locale         mail.Locale
	RequestTimeout time.Duration
	Logger         zerolog.Logger

	// Now is used for date formatting; defaults to time.Now.
	Now func() time.Time
}

type Handler struct {
	service  mails.Service
	resolver *mailbox.Resolver
	journal  journal.Journal
	locale   mail.Locale
	timeout  time.Duration
	logger   zerolog.Logger
	now      func() time.Time
	prefix   string
}

func New(service mails.Service, resolver *mailbox.Resolver, opts Options) *Handler {
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locale.DateLayout == "" {
		opts.Locale = mail.DefaultLocale
	}
	if resolver == nil {
		resolver = mailbox.NewResolver()
	}
	return &Handler{
		service:  service,
		resolver: resolver,
		journal:  opts.Journal,
		locale:   opts.Locale,
		timeout:  opts.RequestTimeout,
		logger:   opts.Logger.With().Str("component", "web").Logger(),
		now:      opts.Now,
	}
}

// Register mounts the API below prefix. Redirects stay below the same
// prefix.
func (h *Handler) Register(prefix string, mux *http.ServeMux) {
	h.prefix = strings.TrimSuffix(prefix, "/")
	mux.HandleFunc(h.prefix+"/mailboxes", h.handleMailboxes)
	mux.HandleFunc(h.prefix+"/mailboxes/{mailbox}/mails", h.handleMails)
	mux.HandleFunc(h.prefix+"/mailboxes/{mailbox}/mails/{uid}", h.handleMail)
	mux.HandleFunc(h.prefix+"/mailboxes/{mailbox}/mails/{uid}/move", h.handleMove)
	mux.HandleFunc(h.prefix+"/journal", h.handleJournal)
}

func (h *Handler) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

func (h *Handler) mailboxParam(r *http.Request) mailbox.ID {
	return h.resolver.Resolve(r.PathValue("mailbox"))
}

func (h *Handler) listingPath(mbox mailbox.ID) string {
	return h.prefix + "/mailboxes/" + url.PathEscape(string(mbox)) + "/mails"
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		problems.InternalServerError("Error marshalling response").WriteToHTTP(w)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeError logs err and answers with a fixed detail that does not
// leak server addresses or protocol text.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if imap.IsConnectionError(err) {
		h.logger.Error().Err(err).Msg("mail server unreachable")
		problems.InternalServerError(DetailUnreachable).WriteToHTTP(w)
		return
	}
	h.logger.Error().Err(err).Msg("mail operation failed")
	problems.InternalServerError(DetailFailed).WriteToHTTP(w)
}

func parseUID(s string) (uint32, bool) {
	uid, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || uid == 0 {
		return 0, false
	}
	return uint32(uid), true
}

func (h *Handler) handleMailboxes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getMailboxes(w, r)
	default:
		problems.MethodNotAllowed(r.Method, []string{http.MethodGet}).WriteToHTTP(w)
	}
}

func (h *Handler) getMailboxes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()

	all, err := h.service.ListAllMailboxes(ctx)
	if err != nil && imap.IsConnectionError(err) {
		h.writeError(w, err)
		return
	}

	view := overviewView{Mailboxes: []mailboxView{}, Partial: err != nil}
	for _, mbox := range h.resolver.Known() {
		records := all[mbox]
		view.Mailboxes = append(view.Mailboxes, mailboxView{
			ID:    mbox,
			Label: mailbox.Label(mbox),
			Count: len(records),
			Mails: h.mailViews(records),
		})
	}

	h.writeJSON(w, view)
}

func (h *Handler) handleMails(w http.ResponseWriter, r *http.Request) {
	mbox := h.mailboxParam(r)

	switch r.Method {
	case http.MethodGet:
		h.getMails(w, r, mbox)
	case http.MethodPost, http.MethodDelete:
		h.deleteMails(w, r, mbox)
	default:
		problems.MethodNotAllowed(r.Method, []string{http.MethodGet, http.MethodPost, http.MethodDelete}).WriteToHTTP(w)
	}
}

func (h *Handler) getMails(w http.ResponseWriter, r *http.Request, mbox mailbox.ID) {
	page := mails.Page{}
	if v := r.URL.Query().Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems.ValidationError("page", "Invalid page number").WriteToHTTP(w)
			return
		}
		page.Number = n
	}
	if v := r.URL.Query().Get("per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			problems.ValidationError("per_page", "Invalid page size").WriteToHTTP(w)
			return
		}
		page.Size = n
	}

	ctx, cancel := h.context(r)
	defer cancel()

	listing, err := h.service.ListMails(ctx, mbox, page)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, h.listingView(listing))
}

func (h *Handler) deleteMails(w http.ResponseWriter, r *http.Request, mbox mailbox.ID) {
	var uids []uint32
	for _, part := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		uid, ok := parseUID(part)
		if !ok {
			problems.ValidationError("ids", "Invalid mail UID "+part).WriteToHTTP(w)
			return
		}
		uids = append(uids, uid)
	}

	ctx, cancel := h.context(r)
	defer cancel()

	result, err := h.service.DeleteMails(ctx, uids, mbox)
	if err != nil {
		h.logger.Warn().Err(err).Str("mailbox", string(mbox)).Msg("delete failed")
	}

	if result != nil {
		entries := make([]journal.Entry, 0, len(result.Items))
		outcomes := make([]string, 0, len(result.Items))
		for _, item := range result.Items {
			entries = append(entries, journal.NewEntry(journal.ActionDelete, item.UID, mbox, "", item.Outcome, item.Err))
			outcomes = append(outcomes, fmt.Sprintf("%d=%s", item.UID, item.Outcome))
		}
		h.record(ctx, entries...)
		w.Header().Set(OutcomeHeader, strings.Join(outcomes, ","))
	}

	http.Redirect(w, r, h.listingPath(mbox), http.StatusSeeOther)
}

func (h *Handler) handleMail(w http.ResponseWriter, r *http.Request) {
	mbox := h.mailboxParam(r)

	switch r.Method {
	case http.MethodGet:
		h.getMail(w, r, mbox)
	default:
		problems.MethodNotAllowed(r.Method, []string{http.MethodGet}).WriteToHTTP(w)
	}
}

func (h *Handler) getMail(w http.ResponseWriter, r *http.Request, mbox mailbox.ID) {
	uid, ok := parseUID(r.PathValue("uid"))
	if !ok {
		problems.ValidationError("uid", "Invalid mail UID").WriteToHTTP(w)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	record, err := h.service.GetMail(ctx, uid, mbox)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if record.IsEmpty() {
		http.Redirect(w, r, h.listingPath(mbox), http.StatusSeeOther)
		return
	}

	h.writeJSON(w, h.mailView(record, true))
}

func (h *Handler) handleMove(w http.ResponseWriter, r *http.Request) {
	mbox := h.mailboxParam(r)

	switch r.Method {
	case http.MethodPost, http.MethodPatch:
		h.moveMail(w, r, mbox)
	default:
		problems.MethodNotAllowed(r.Method, []string{http.MethodPost, http.MethodPatch}).WriteToHTTP(w)
	}
}

func (h *Handler) moveMail(w http.ResponseWriter, r *http.Request, from mailbox.ID) {
	uid, ok := parseUID(r.PathValue("uid"))
	if !ok {
		problems.ValidationError("uid", "Invalid mail UID").WriteToHTTP(w)
		return
	}
	to := h.resolver.Resolve(r.URL.Query().Get("to"))

	ctx, cancel := h.context(r)
	defer cancel()

	outcome, err := h.service.MoveMail(ctx, uid, from, to)
	if err != nil {
		h.logger.Warn().Err(err).Uint32("uid", uid).Str("from", string(from)).Str("to", string(to)).Msg("move failed")
	}
	if outcome != mail.Skipped {
		h.record(ctx, journal.NewEntry(journal.ActionMove, uid, from, to, outcome, err))
	}

	w.Header().Set(OutcomeHeader, outcome.String())
	http.Redirect(w, r, h.listingPath(from), http.StatusSeeOther)
}

func (h *Handler) record(ctx context.Context, entries ...journal.Entry) {
	if err := h.journal.Record(ctx, entries...); err != nil {
		h.logger.Error().Err(err).Msg("writing journal")
	}
}

func (h *Handler) handleJournal(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.getJournal(w, r)
	default:
		problems.MethodNotAllowed(r.Method, []string{http.MethodGet}).WriteToHTTP(w)
	}
}

func (h *Handler) getJournal(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			problems.ValidationError("limit", "Invalid limit").WriteToHTTP(w)
			return
		}
		limit = n
	}

	ctx, cancel := h.context(r)
	defer cancel()

	entries, err := h.journal.Recent(ctx, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, entries)
}
