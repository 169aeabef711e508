package sync

import (
	"context"
	"errors"
	gosync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

type fakeCounter struct {
	mu     gosync.Mutex
	calls  int
	active int
	max    int
	err    error
}

func (f *fakeCounter) Counts(context.Context) (map[mailbox.ID]int, error) {
	f.mu.Lock()
	f.calls++
	f.active++
	if f.active > f.max {
		f.max = f.active
	}
	f.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return map[mailbox.ID]int{mailbox.Inbox: 3, mailbox.Spam: 1}, nil
}

func receive(t *testing.T, r *Refresher) CountsMsg {
	t.Helper()

	done := make(chan CountsMsg, 1)
	go func() {
		msg, _ := r.WaitForNextResult()().(CountsMsg)
		done <- msg
	}()

	select {
	case msg := <-done:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for counts")
		return CountsMsg{}
	}
}

func TestRefresherPublishesCounts(t *testing.T) {
	counter := &fakeCounter{}
	r := New(counter, time.Hour, zerolog.Nop())

	if cmd := r.Start(); cmd == nil {
		t.Fatal("Expected a command from Start")
	}
	defer r.Stop()

	msg := receive(t, r)
	if msg.Error != nil {
		t.Fatalf("Unexpected error: %v", msg.Error)
	}
	if msg.Counts[mailbox.Inbox] != 3 || msg.Counts[mailbox.Spam] != 1 {
		t.Errorf("Unexpected counts: %v", msg.Counts)
	}
	if r.Status().State != SyncIdle || r.Status().LastSync.IsZero() {
		t.Errorf("Unexpected status: %+v", r.Status())
	}

	r.Refresh()
	receive(t, r)

	if r.Start() != nil {
		t.Error("Expected second Start to be a no-op")
	}
}

func TestRefresherNeverOverlaps(t *testing.T) {
	counter := &fakeCounter{}
	r := New(counter, time.Millisecond, zerolog.Nop())
	r.Start()

	for i := 0; i < 5; i++ {
		r.Refresh()
		receive(t, r)
	}
	r.Stop()

	counter.mu.Lock()
	defer counter.mu.Unlock()
	if counter.max != 1 {
		t.Errorf("Expected at most one refresh at a time, got %d", counter.max)
	}
}

func TestRefresherReportsConnectionErrors(t *testing.T) {
	counter := &fakeCounter{err: &imap.ConnectionError{Addr: "mail:993", Err: errors.New("refused")}}
	r := New(counter, time.Hour, zerolog.Nop())
	r.Start()
	defer r.Stop()

	msg := receive(t, r)
	if msg.Error == nil || !msg.ConnectionLost {
		t.Errorf("Expected connection error, got %+v", msg)
	}
	if r.Status().State != SyncError {
		t.Errorf("Expected error state, got %v", r.Status().State)
	}
}
