package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

// SyncState represents the current state of the refresher.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the state of the last refresh.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// CountsMsg is a tea.Msg sent when a refresh completes.
type CountsMsg struct {
	Counts map[mailbox.ID]int
	Error  error

	// ConnectionLost is set when the server could not be reached or
	// rejected the credentials.
	ConnectionLost bool
	At             time.Time
}

// Counter is implemented by the mailbox service.
type Counter interface {
	Counts(ctx context.Context) (map[mailbox.ID]int, error)
}

const (
	// fetchTimeout is the maximum time allowed for a single refresh.
	fetchTimeout    = 30 * time.Second
	defaultInterval = 120 * time.Second
)

// Refresher polls the message counts of all mailboxes in the background.
// Refreshes run on a single goroutine and therefore never overlap.
type Refresher struct {
	counter   Counter
	interval  time.Duration
	logger    zerolog.Logger
	resultCh  chan CountsMsg
	triggerCh chan struct{}
	stopCh    chan struct{}
	mu        gosync.Mutex
	running   bool
	status    SyncStatus
}

// New creates a Refresher polling counter every interval.
func New(counter Counter, interval time.Duration, logger zerolog.Logger) *Refresher {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Refresher{
		counter:   counter,
		interval:  interval,
		logger:    logger.With().Str("component", "refresher").Logger(),
		resultCh:  make(chan CountsMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start starts the polling goroutine and returns a tea.Cmd that waits for
// the first result.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	go r.loop()

	return r.waitForResult()
}

// Stop halts the polling goroutine.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	close(r.stopCh)
	r.running = false
}

// Refresh triggers an immediate refresh. A refresh that is already
// pending absorbs the trigger.
func (r *Refresher) Refresh() {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

// Status returns the state of the last refresh.
func (r *Refresher) Status() SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Refresher) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.refresh()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.refresh()
		case <-r.triggerCh:
			r.refresh()
		}
	}
}

func (r *Refresher) refresh() {
	r.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	counts, err := r.counter.Counts(ctx)
	msg := CountsMsg{Counts: counts, Error: err, At: time.Now()}

	if err != nil {
		msg.ConnectionLost = imap.IsConnectionError(err)
		r.logger.Warn().Err(err).Bool("connection_lost", msg.ConnectionLost).Msg("refreshing counts failed")
		r.setStatus(SyncError, err)
	} else {
		r.setStatus(SyncIdle, nil)
	}

	r.sendResult(msg)
}

func (r *Refresher) setStatus(state SyncState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.State = state
	r.status.Error = err
	if state == SyncIdle {
		r.status.LastSync = time.Now()
	}
}

// sendResult sends a CountsMsg on the result channel without blocking.
func (r *Refresher) sendResult(msg CountsMsg) {
	select {
	case r.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the refresher
	}
}

func (r *Refresher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-r.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next refresh.
// It should be called after handling a CountsMsg to keep listening.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}
