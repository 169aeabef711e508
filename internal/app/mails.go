package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailbox-admin/internal/journal"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/mails"
	"github.com/nhle/mailbox-admin/internal/ui/detail"
	"github.com/nhle/mailbox-admin/internal/ui/maillist"
)

// commandTimeout bounds each service call started from the UI.
const commandTimeout = 60 * time.Second

// listingLoadedMsg carries one page of a mailbox, or every mailbox for
// the "All" tab.
type listingLoadedMsg struct {
	tab     int
	listing *mails.Listing
	all     []mail.Record
	err     error
}

// moveDoneMsg is sent after a move finished.
type moveDoneMsg struct {
	ref     maillist.MailRef
	to      mailbox.ID
	outcome mail.Outcome
	err     error
}

// deleteDoneMsg is sent after a delete batch finished.
type deleteDoneMsg struct {
	items []mails.ItemResult
	err   error
}

func (m *Model) loadTab(tab, page int) tea.Cmd {
	svc := m.service
	if tab == m.allTab() {
		order := m.resolver.Known()
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
			defer cancel()

			all, err := svc.ListAllMailboxes(ctx)
			var records []mail.Record
			for _, id := range order {
				records = append(records, all[id]...)
			}
			return listingLoadedMsg{tab: tab, all: records, err: err}
		}
	}

	mbox := m.tabs[tab]
	size := m.pageSize
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		listing, err := svc.ListMails(ctx, mbox, mails.Page{Number: page, Size: size})
		return listingLoadedMsg{tab: tab, listing: listing, err: err}
	}
}

func (m *Model) loadMail(ref maillist.MailRef) tea.Cmd {
	svc := m.service
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		record, err := svc.GetMail(ctx, ref.UID, ref.Mailbox)
		return detail.DetailLoadedMsg{Record: record, Err: err}
	}
}

func (m *Model) moveMail(ref maillist.MailRef, to mailbox.ID) tea.Cmd {
	svc, j, logger := m.service, m.journal, m.logger
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		outcome, err := svc.MoveMail(ctx, ref.UID, ref.Mailbox, to)
		if outcome != mail.Skipped {
			entry := journal.NewEntry(journal.ActionMove, ref.UID, ref.Mailbox, to, outcome, err)
			if jerr := j.Record(ctx, entry); jerr != nil {
				logger.Error().Err(jerr).Msg("writing journal")
			}
		}
		return moveDoneMsg{ref: ref, to: to, outcome: outcome, err: err}
	}
}

// deleteMails runs one batch per mailbox, in the order the mailboxes
// first appear in refs.
func (m *Model) deleteMails(refs []maillist.MailRef) tea.Cmd {
	svc, j, logger := m.service, m.journal, m.logger

	var order []mailbox.ID
	byMailbox := make(map[mailbox.ID][]uint32)
	for _, ref := range refs {
		if _, ok := byMailbox[ref.Mailbox]; !ok {
			order = append(order, ref.Mailbox)
		}
		byMailbox[ref.Mailbox] = append(byMailbox[ref.Mailbox], ref.UID)
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		var done deleteDoneMsg
		for _, mbox := range order {
			result, err := svc.DeleteMails(ctx, byMailbox[mbox], mbox)
			if err != nil {
				done.err = err
			}
			if result == nil {
				continue
			}

			entries := make([]journal.Entry, 0, len(result.Items))
			for _, item := range result.Items {
				entries = append(entries, journal.NewEntry(journal.ActionDelete, item.UID, mbox, "", item.Outcome, item.Err))
			}
			if jerr := j.Record(ctx, entries...); jerr != nil {
				logger.Error().Err(jerr).Msg("writing journal")
			}
			done.items = append(done.items, result.Items...)
		}
		return done
	}
}

// summarizeDelete renders per-outcome counts such as "2 deleted, 1 not found".
func summarizeDelete(items []mails.ItemResult) string {
	counts := make(map[mail.Outcome]int)
	for _, item := range items {
		counts[item.Outcome]++
	}

	var parts []string
	if n := counts[mail.Applied]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d deleted", n))
	}
	if n := counts[mail.NotFound]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d not found", n))
	}
	if n := counts[mail.Failed]; n > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", n))
	}
	if len(parts) == 0 {
		return "nothing deleted"
	}
	return strings.Join(parts, ", ")
}

// worstOutcome reports Failed if any item failed, else NotFound if any
// item was missing, else Applied.
func worstOutcome(items []mails.ItemResult) mail.Outcome {
	worst := mail.Applied
	for _, item := range items {
		switch item.Outcome {
		case mail.Failed:
			return mail.Failed
		case mail.NotFound:
			worst = mail.NotFound
		}
	}
	return worst
}
