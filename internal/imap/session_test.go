package imap_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
	"github.com/nhle/mailbox-admin/internal/testutil"
)

func newTestSession(t *testing.T, srv *testutil.IMAPServer) *imap.Session {
	t.Helper()

	s := imap.NewSession(imap.Config{
		Host:           srv.Host,
		Port:           srv.Port,
		Username:       testutil.IMAPUser,
		Password:       testutil.IMAPPassword,
		TLS:            false,
		CommandTimeout: 5 * time.Second,
	}, zerolog.Nop())

	t.Cleanup(func() {
		_ = s.Disconnect(context.Background())
	})
	return s
}

func message(subject, body string, date time.Time) []byte {
	return testutil.Message{Subject: subject, Body: body, Date: date}.RFC822()
}

func TestFetchAll(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	srv.Append("INBOX",
		message("First", "first body", time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)),
		message("Second", "second body", time.Date(2021, 3, 2, 9, 0, 0, 0, time.UTC)),
	)
	s := newTestSession(t, srv)

	raws, err := s.FetchAll(context.Background(), mailbox.Inbox)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(raws))
	}

	first := mail.New(raws[0], mailbox.Inbox, time.UTC)
	if first.Subject() != "First" {
		t.Errorf("Expected subject First, got %q", first.Subject())
	}
	if first.SenderEmail() != "alice@example.com" {
		t.Errorf("Expected sender alice@example.com, got %q", first.SenderEmail())
	}
	if first.Body() != "first body" {
		t.Errorf("Expected body 'first body', got %q", first.Body())
	}
	if len(raws[0].Message) == 0 {
		t.Error("Expected full message section to be fetched")
	}
}

func TestFetchAllEmptyMailbox(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	s := newTestSession(t, srv)

	raws, err := s.FetchAll(context.Background(), mailbox.Failed)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if raws == nil || len(raws) != 0 {
		t.Errorf("Expected empty non-nil slice, got %v", raws)
	}
}

func TestFetchByUID(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	uids := srv.Append("SPAMMING", message("Buy now", "cheap", time.Time{}))
	s := newTestSession(t, srv)

	raw, err := s.FetchByUID(context.Background(), uids[0], mailbox.Spam)
	if err != nil {
		t.Fatalf("FetchByUID: %v", err)
	}
	if raw == nil {
		t.Fatal("Expected message, got nil")
	}
	if raw.UID != uids[0] {
		t.Errorf("Expected UID %d, got %d", uids[0], raw.UID)
	}
	if raw.Envelope == nil || raw.Envelope.Subject != "Buy now" {
		t.Errorf("Expected subject 'Buy now', got %+v", raw.Envelope)
	}
}

func TestFetchByUIDMissing(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	srv.Append("INBOX", message("Only", "one", time.Time{}))
	s := newTestSession(t, srv)

	raw, err := s.FetchByUID(context.Background(), 999, mailbox.Inbox)
	if err != nil {
		t.Fatalf("FetchByUID: %v", err)
	}
	if raw != nil {
		t.Errorf("Expected nil for missing UID, got %+v", raw)
	}
}

func TestMoveByUID(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	uids := srv.Append("INBOX", message("Move me", "body", time.Time{}))
	s := newTestSession(t, srv)
	ctx := context.Background()

	outcome, err := s.MoveByUID(ctx, uids[0], mailbox.Inbox, mailbox.Spam)
	if err != nil {
		t.Fatalf("MoveByUID: %v", err)
	}
	if outcome != mail.Applied {
		t.Errorf("Expected applied, got %s", outcome)
	}

	if n, _ := s.StatusCount(ctx, mailbox.Inbox); n != 0 {
		t.Errorf("Expected INBOX to be empty, got %d", n)
	}
	if n, _ := s.StatusCount(ctx, mailbox.Spam); n != 1 {
		t.Errorf("Expected 1 message in SPAMMING, got %d", n)
	}
}

func TestMoveByUIDMissing(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	s := newTestSession(t, srv)

	outcome, err := s.MoveByUID(context.Background(), 42, mailbox.Inbox, mailbox.Failed)
	if err != nil {
		t.Fatalf("MoveByUID: %v", err)
	}
	if outcome != mail.NotFound {
		t.Errorf("Expected not_found, got %s", outcome)
	}
}

func TestMoveByUIDUnknownTarget(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	uids := srv.Append("INBOX", message("Stay", "body", time.Time{}))
	s := newTestSession(t, srv)
	ctx := context.Background()

	outcome, err := s.MoveByUID(ctx, uids[0], mailbox.Inbox, "DOES-NOT-EXIST")
	if err == nil {
		t.Fatal("Expected error for unknown target mailbox")
	}
	if outcome != mail.Failed {
		t.Errorf("Expected failed, got %s", outcome)
	}
	if !imap.IsProtocolError(err) {
		t.Errorf("Expected ProtocolError, got %T: %v", err, err)
	}

	// A NO response keeps the connection usable.
	if n, err := s.StatusCount(ctx, mailbox.Inbox); err != nil || n != 1 {
		t.Errorf("Expected 1 message after failed move, got %d (%v)", n, err)
	}
}

func TestDeleteByUID(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	uids := srv.Append("FAILED",
		message("Bounce 1", "a", time.Time{}),
		message("Bounce 2", "b", time.Time{}),
	)
	s := newTestSession(t, srv)
	ctx := context.Background()

	outcome, err := s.DeleteByUID(ctx, uids[0], mailbox.Failed)
	if err != nil {
		t.Fatalf("DeleteByUID: %v", err)
	}
	if outcome != mail.Applied {
		t.Errorf("Expected applied, got %s", outcome)
	}
	if n := srv.Count("FAILED"); n != 1 {
		t.Errorf("Expected 1 message after expunge, got %d", n)
	}

	// Retrying is idempotent.
	outcome, err = s.DeleteByUID(ctx, uids[0], mailbox.Failed)
	if err != nil {
		t.Fatalf("DeleteByUID retry: %v", err)
	}
	if outcome != mail.NotFound {
		t.Errorf("Expected not_found on retry, got %s", outcome)
	}
	if n := srv.Count("FAILED"); n != 1 {
		t.Errorf("Expected remaining message untouched, got %d", n)
	}
}

func TestDeleteByUIDAlreadyFlagged(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	uids := srv.Append("FAILED", message("Bounce", "a", time.Time{}))
	srv.AddFlags("FAILED", uids[0], goimap.FlagDeleted)
	if n := srv.Count("FAILED"); n != 1 {
		t.Fatalf("Expected flagged message to remain until expunge, got %d", n)
	}

	s := newTestSession(t, srv)
	outcome, err := s.DeleteByUID(context.Background(), uids[0], mailbox.Failed)
	if err != nil {
		t.Fatalf("DeleteByUID: %v", err)
	}
	if outcome != mail.Applied {
		t.Errorf("Expected applied, got %s", outcome)
	}
	if n := srv.Count("FAILED"); n != 0 {
		t.Errorf("Expected flagged message to be expunged, got %d", n)
	}
}

func TestConcurrentFetchAll(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	srv.Append("INBOX",
		message("inbox 1", "a", time.Time{}),
		message("inbox 2", "b", time.Time{}),
	)
	srv.Append("SPAMMING", message("spam 1", "c", time.Time{}))
	s := newTestSession(t, srv)

	want := map[mailbox.ID]int{mailbox.Inbox: 2, mailbox.Spam: 1}
	prefix := map[mailbox.ID]string{mailbox.Inbox: "inbox", mailbox.Spam: "spam"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		mbox := mailbox.Inbox
		if i%2 == 1 {
			mbox = mailbox.Spam
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			raws, err := s.FetchAll(context.Background(), mbox)
			if err != nil {
				t.Errorf("FetchAll %s: %v", mbox, err)
				return
			}
			if len(raws) != want[mbox] {
				t.Errorf("Expected %d messages in %s, got %d", want[mbox], mbox, len(raws))
			}
			for _, raw := range raws {
				if subject := raw.Envelope.Subject; !strings.HasPrefix(subject, prefix[mbox]) {
					t.Errorf("Expected only %s messages, got %q", mbox, subject)
				}
			}
		}()
	}
	wg.Wait()
}

func TestFetchAllReselectsMailbox(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	srv.Append("INBOX", message("inbox 1", "a", time.Time{}))
	spamUIDs := srv.Append("SPAMMING",
		message("spam 1", "b", time.Time{}),
		message("spam 2", "c", time.Time{}),
	)
	s := newTestSession(t, srv)
	ctx := context.Background()

	if _, err := s.Select(ctx, mailbox.Spam); err != nil {
		t.Fatalf("Select: %v", err)
	}

	raws, err := s.FetchAll(ctx, mailbox.Inbox)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(raws) != 1 || raws[0].Envelope.Subject != "inbox 1" {
		t.Errorf("Expected the INBOX message after selecting SPAMMING, got %d messages", len(raws))
	}

	raw, err := s.FetchByUID(ctx, spamUIDs[0], mailbox.Spam)
	if err != nil {
		t.Fatalf("FetchByUID: %v", err)
	}
	if raw == nil || raw.Envelope.Subject != "spam 1" {
		t.Errorf("Expected UID %d to resolve in SPAMMING, got %+v", spamUIDs[0], raw)
	}
}

func TestStatusCount(t *testing.T) {
	srv := testutil.NewIMAPServer(t, "NEWS-CATCHALL")
	srv.Append("NEWS-CATCHALL",
		message("a", "a", time.Time{}),
		message("b", "b", time.Time{}),
		message("c", "c", time.Time{}),
	)
	s := newTestSession(t, srv)

	n, err := s.StatusCount(context.Background(), "NEWS-CATCHALL")
	if err != nil {
		t.Fatalf("StatusCount: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3, got %d", n)
	}
}

func TestSelect(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	srv.Append("INBOX", message("a", "a", time.Time{}))
	s := newTestSession(t, srv)

	data, err := s.Select(context.Background(), mailbox.Inbox)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if data.NumMessages != 1 {
		t.Errorf("Expected 1 message, got %d", data.NumMessages)
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	s := newTestSession(t, srv)
	ctx := context.Background()

	if err := s.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect before connect: %v", err)
	}
	if _, err := s.StatusCount(ctx, mailbox.Inbox); err != nil {
		t.Fatalf("StatusCount: %v", err)
	}
	if !s.Connected() {
		t.Fatal("Expected lazy connect")
	}
	if err := s.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if err := s.Disconnect(ctx); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
	if s.Connected() {
		t.Error("Expected session to be disconnected")
	}

	// The next call reconnects.
	if _, err := s.StatusCount(ctx, mailbox.Inbox); err != nil {
		t.Fatalf("StatusCount after reconnect: %v", err)
	}
}

func TestBadCredentials(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	s := imap.NewSession(imap.Config{
		Host:     srv.Host,
		Port:     srv.Port,
		Username: testutil.IMAPUser,
		Password: "wrong",
	}, zerolog.Nop())

	err := s.Connect(context.Background())
	if err == nil {
		t.Fatal("Expected error for bad credentials")
	}
	if !imap.IsConnectionError(err) {
		t.Errorf("Expected ConnectionError, got %T: %v", err, err)
	}
	if strings.Contains(err.Error(), "wrong") {
		t.Errorf("Error must not contain the password: %v", err)
	}
}

func TestDialFailure(t *testing.T) {
	s := imap.NewSession(imap.Config{
		Host:        "127.0.0.1",
		Port:        1,
		Username:    testutil.IMAPUser,
		DialTimeout: time.Second,
	}, zerolog.Nop())

	_, err := s.FetchAll(context.Background(), mailbox.Inbox)
	if !imap.IsConnectionError(err) {
		t.Errorf("Expected ConnectionError, got %T: %v", err, err)
	}
}

func TestCancelledContext(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	s := newTestSession(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.StatusCount(ctx, mailbox.Inbox)
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if !imap.IsTimeout(err) {
		t.Errorf("Expected timeout error, got %v", err)
	}
}
