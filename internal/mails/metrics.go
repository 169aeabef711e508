package mails

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

// Metrics are the instruments updated by the metrics service.
type Metrics struct {
	Requests metrics.Counter   // labels: method, result
	Outcomes metrics.Counter   // labels: method, outcome
	Latency  metrics.Histogram // labels: method
}

// NewMetrics returns Prometheus-backed instruments registered with reg,
// or discarding instruments when reg is nil.
func NewMetrics(reg prom.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{
			Requests: discard.NewCounter(),
			Outcomes: discard.NewCounter(),
			Latency:  discard.NewHistogram(),
		}
	}

	requests := prom.NewCounterVec(prom.CounterOpts{
		Namespace: "mailadmin",
		Subsystem: "mails",
		Name:      "requests_total",
		Help:      "Number of service calls by method and result.",
	}, []string{"method", "result"})
	outcomes := prom.NewCounterVec(prom.CounterOpts{
		Namespace: "mailadmin",
		Subsystem: "mails",
		Name:      "outcomes_total",
		Help:      "Per-message outcomes of move and delete.",
	}, []string{"method", "outcome"})
	latency := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "mailadmin",
		Subsystem: "mails",
		Name:      "request_duration_seconds",
		Help:      "Duration of service calls.",
		Buckets:   prom.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(requests, outcomes, latency)

	return &Metrics{
		Requests: kitprometheus.NewCounter(requests),
		Outcomes: kitprometheus.NewCounter(outcomes),
		Latency:  kitprometheus.NewHistogram(latency),
	}
}

type metricsService struct {
	service Service
	metrics *Metrics
}

// NewMetricsService wraps s and records call counts, outcomes and
// latencies.
func NewMetricsService(s Service, m *Metrics) Service {
	if m == nil {
		m = NewMetrics(nil)
	}
	return &metricsService{service: s, metrics: m}
}

func (s *metricsService) observe(method string, begin time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.Requests.With("method", method, "result", result).Add(1)
	s.metrics.Latency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (s *metricsService) outcome(method string, o mail.Outcome) {
	s.metrics.Outcomes.With("method", method, "outcome", o.String()).Add(1)
}

func (s *metricsService) ListMails(ctx context.Context, mbox mailbox.ID, page Page) (listing *Listing, err error) {
	defer func(begin time.Time) { s.observe("list_mails", begin, err) }(time.Now())
	return s.service.ListMails(ctx, mbox, page)
}

func (s *metricsService) GetMail(ctx context.Context, uid uint32, mbox mailbox.ID) (record mail.Record, err error) {
	defer func(begin time.Time) { s.observe("get_mail", begin, err) }(time.Now())
	return s.service.GetMail(ctx, uid, mbox)
}

func (s *metricsService) MoveMail(ctx context.Context, uid uint32, from, to mailbox.ID) (outcome mail.Outcome, err error) {
	defer func(begin time.Time) {
		s.observe("move_mail", begin, err)
		s.outcome("move_mail", outcome)
	}(time.Now())
	return s.service.MoveMail(ctx, uid, from, to)
}

func (s *metricsService) DeleteMails(ctx context.Context, uids []uint32, mbox mailbox.ID) (result *BatchResult, err error) {
	defer func(begin time.Time) {
		s.observe("delete_mails", begin, err)
		if result != nil {
			for _, item := range result.Items {
				s.outcome("delete_mails", item.Outcome)
			}
		}
	}(time.Now())
	return s.service.DeleteMails(ctx, uids, mbox)
}

func (s *metricsService) ListAllMailboxes(ctx context.Context) (all map[mailbox.ID][]mail.Record, err error) {
	defer func(begin time.Time) { s.observe("list_all_mailboxes", begin, err) }(time.Now())
	return s.service.ListAllMailboxes(ctx)
}

func (s *metricsService) Count(ctx context.Context, mbox mailbox.ID) (n int, err error) {
	defer func(begin time.Time) { s.observe("count", begin, err) }(time.Now())
	return s.service.Count(ctx, mbox)
}

func (s *metricsService) Counts(ctx context.Context) (counts map[mailbox.ID]int, err error) {
	defer func(begin time.Time) { s.observe("counts", begin, err) }(time.Now())
	return s.service.Counts(ctx)
}
