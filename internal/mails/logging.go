package mails

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

type loggingService struct {
	logger  zerolog.Logger
	service Service
}

// NewLoggingService wraps s and logs every call with its duration.
func NewLoggingService(s Service, logger zerolog.Logger) Service {
	return &loggingService{
		logger:  logger.With().Str("component", "mails").Logger(),
		service: s,
	}
}

func (s *loggingService) event(method string, err error) *zerolog.Event {
	if err != nil {
		return s.logger.Warn().Err(err).Str("method", method)
	}
	return s.logger.Debug().Str("method", method)
}

func (s *loggingService) ListMails(ctx context.Context, mbox mailbox.ID, page Page) (listing *Listing, err error) {
	defer func(begin time.Time) {
		e := s.event("list_mails", err).
			Str("mailbox", string(mbox)).
			Int("page", page.Number).
			Dur("took", time.Since(begin))
		if listing != nil {
			e = e.Int("total", listing.Total).Int("returned", len(listing.Mails))
		}
		e.Msg("")
	}(time.Now())
	return s.service.ListMails(ctx, mbox, page)
}

func (s *loggingService) GetMail(ctx context.Context, uid uint32, mbox mailbox.ID) (record mail.Record, err error) {
	defer func(begin time.Time) {
		s.event("get_mail", err).
			Str("mailbox", string(mbox)).
			Uint32("uid", uid).
			Bool("found", !record.IsEmpty()).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return s.service.GetMail(ctx, uid, mbox)
}

func (s *loggingService) MoveMail(ctx context.Context, uid uint32, from, to mailbox.ID) (outcome mail.Outcome, err error) {
	defer func(begin time.Time) {
		e := s.event("move_mail", err)
		if err == nil && outcome == mail.Applied {
			e = s.logger.Info().Str("method", "move_mail")
		}
		e.Str("from", string(from)).
			Str("to", string(to)).
			Uint32("uid", uid).
			Stringer("outcome", outcome).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return s.service.MoveMail(ctx, uid, from, to)
}

func (s *loggingService) DeleteMails(ctx context.Context, uids []uint32, mbox mailbox.ID) (result *BatchResult, err error) {
	defer func(begin time.Time) {
		e := s.event("delete_mails", err)
		if err == nil && len(uids) > 0 {
			e = s.logger.Info().Str("method", "delete_mails")
		}
		e = e.Str("mailbox", string(mbox)).
			Int("requested", len(uids)).
			Dur("took", time.Since(begin))
		if result != nil {
			e = e.Int("failed", len(result.Failed()))
		}
		e.Msg("")
	}(time.Now())
	return s.service.DeleteMails(ctx, uids, mbox)
}

func (s *loggingService) ListAllMailboxes(ctx context.Context) (all map[mailbox.ID][]mail.Record, err error) {
	defer func(begin time.Time) {
		s.event("list_all_mailboxes", err).
			Int("mailboxes", len(all)).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return s.service.ListAllMailboxes(ctx)
}

func (s *loggingService) Count(ctx context.Context, mbox mailbox.ID) (n int, err error) {
	defer func(begin time.Time) {
		s.event("count", err).
			Str("mailbox", string(mbox)).
			Int("count", n).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return s.service.Count(ctx, mbox)
}

func (s *loggingService) Counts(ctx context.Context) (counts map[mailbox.ID]int, err error) {
	defer func(begin time.Time) {
		s.event("counts", err).
			Int("mailboxes", len(counts)).
			Dur("took", time.Since(begin)).
			Msg("")
	}(time.Now())
	return s.service.Counts(ctx)
}
