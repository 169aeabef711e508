package mails

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/mailbox"
)

func TestLoggingServiceLogsCalls(t *testing.T) {
	f := newFakeSession()
	f.add(mailbox.Inbox, 1, "a", time.Time{})

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	svc := NewLoggingService(newTestService(f), logger)

	if _, err := svc.MoveMail(context.Background(), 1, mailbox.Inbox, mailbox.Spam); err != nil {
		t.Fatalf("MoveMail: %v", err)
	}
	if _, err := svc.ListMails(context.Background(), mailbox.Inbox, Page{}); err != nil {
		t.Fatalf("ListMails: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"method":"move_mail"`, `"outcome":"applied"`, `"method":"list_mails"`, `"total":1`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log to contain %s, got %s", want, out)
		}
	}
}

func TestMetricsServiceCountsOutcomes(t *testing.T) {
	f := newFakeSession()
	f.add(mailbox.Failed, 1, "a", time.Time{})

	reg := prom.NewRegistry()
	svc := NewMetricsService(newTestService(f), NewMetrics(reg))
	ctx := context.Background()

	if _, err := svc.DeleteMails(ctx, []uint32{1, 2}, mailbox.Failed); err != nil {
		t.Fatalf("DeleteMails: %v", err)
	}
	if _, err := svc.MoveMail(ctx, 1, mailbox.Inbox, mailbox.Inbox); err != nil {
		t.Fatalf("MoveMail: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	got := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "mailadmin_mails_outcomes_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			var key []string
			for _, label := range m.GetLabel() {
				key = append(key, label.GetValue())
			}
			got[strings.Join(key, "/")] = m.GetCounter().GetValue()
		}
	}

	want := map[string]float64{
		"delete_mails/applied":   1,
		"delete_mails/not_found": 1,
		"move_mail/skipped":      1,
	}
	for key, value := range want {
		if got[key] != value {
			t.Errorf("Expected %s = %v, got %v (all: %v)", key, value, got[key], got)
		}
	}
}

func TestNewMetricsDisabled(t *testing.T) {
	m := NewMetrics(nil)
	m.Requests.With("method", "x", "result", "ok").Add(1)
	m.Latency.With("method", "x").Observe(1)
}
