package main

import (
	"context"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/credential"
	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/journal"
	"github.com/nhle/mailbox-admin/internal/logging"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/mails"
	"github.com/nhle/mailbox-admin/internal/model"
)

// stack is the service graph shared by the front ends.
type stack struct {
	session  *imap.Session
	service  mails.Service
	resolver *mailbox.Resolver
	journal  journal.Journal
	registry *prom.Registry
	locale   mail.Locale
}

func newStack(cfg *model.AppConfig, store *credential.Store, logger zerolog.Logger) (*stack, error) {
	password, err := store.IMAPPassword(cfg.IMAP.Email, cfg.IMAP.Password)
	if err != nil {
		return nil, fmt.Errorf("looking up password: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	jr := journal.Journal(journal.Nop{})
	if cfg.Journal.Path != "" {
		sj, err := journal.NewSQLiteJournal(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("opening journal: %w", err)
		}
		jr = sj
	}

	var reg *prom.Registry
	var registerer prom.Registerer
	if cfg.Metrics.Enabled {
		reg = prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		registerer = reg
	}

	resolver := cfg.Resolver()
	session := imap.NewSession(cfg.SessionConfig(password), logger)

	var svc mails.Service
	svc = mails.NewService(session, resolver, mails.Options{
		Location:        loc,
		DefaultPageSize: cfg.Display.PageSize,
	})
	svc = mails.NewLoggingService(svc, logger)
	svc = mails.NewMetricsService(svc, mails.NewMetrics(registerer))

	logger.Info().
		Str("host", cfg.IMAP.Host).
		Str("account", logging.MaskEmail(cfg.IMAP.Email)).
		Strs("mailboxes", mailboxNames(resolver)).
		Msg("service ready")

	return &stack{
		session:  session,
		service:  svc,
		resolver: resolver,
		journal:  jr,
		registry: reg,
		locale:   mail.LookupLocale(cfg.Display.Locale),
	}, nil
}

func mailboxNames(r *mailbox.Resolver) []string {
	known := r.Known()
	names := make([]string, len(known))
	for i, id := range known {
		names[i] = string(id)
	}
	return names
}

// Close logs out of the server and closes the journal.
func (s *stack) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := s.session.Disconnect(ctx)
	if jerr := s.journal.Close(); err == nil {
		err = jerr
	}
	return err
}
