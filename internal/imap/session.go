// Package imap owns the single IMAP connection used to administer the
// mailing-list mailboxes. All exchanges are serialized and bounded by a
// deadline; a broken or timed-out connection is dropped and re-established
// on the next call.
package imap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/logging"
	"github.com/nhle/mailbox-admin/internal/mail"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

const (
	DefaultPort           = 993
	DefaultDialTimeout    = 15 * time.Second
	DefaultCommandTimeout = 30 * time.Second
)

// Config describes how to reach and authenticate against the server.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// TLS selects implicit TLS. Plain TCP is only meant for local servers
	// and tests.
	TLS       bool
	TLSConfig *tls.Config

	DialTimeout    time.Duration
	CommandTimeout time.Duration

	// Debug logs the protocol trace at trace level.
	Debug bool
}

func (c Config) addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Session is a lazily connected IMAP session. It is safe for concurrent
// use; callers are served one at a time.
type Session struct {
	cfg    Config
	logger zerolog.Logger

	mu       sync.Mutex
	conn     net.Conn
	client   *imapclient.Client
	selected mailbox.ID
}

// NewSession creates a session. No connection is made until the first
// operation or an explicit Connect.
func NewSession(cfg Config, logger zerolog.Logger) *Session {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = DefaultCommandTimeout
	}
	return &Session{
		cfg: cfg,
		logger: logger.With().
			Str("component", "imap").
			Str("user", logging.MaskEmail(cfg.Username)).
			Logger(),
	}
}

// Connect dials the server and logs in. It is a no-op when already
// connected.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.client != nil {
		return nil
	}

	addr := s.cfg.addr()
	s.logger.Debug().Str("addr", addr).Bool("tls", s.cfg.TLS).Msg("connecting")

	conn, err := s.dial(ctx, addr)
	if err != nil {
		s.logger.Error().Err(err).Str("addr", addr).Msg("dial failed")
		return &ConnectionError{Addr: addr, User: logging.MaskEmail(s.cfg.Username), Err: err}
	}

	opts := &imapclient.Options{}
	if s.cfg.Debug {
		opts.DebugWriter = &debugWriter{logger: s.logger}
	}
	client := imapclient.New(conn, opts)

	release := s.armDeadline(ctx, conn)
	err = client.Login(s.cfg.Username, s.cfg.Password).Wait()
	if !release() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = client.Close()
		s.logger.Error().Err(err).Msg("login failed")
		return &ConnectionError{Addr: addr, User: logging.MaskEmail(s.cfg.Username), Err: err}
	}

	s.conn = conn
	s.client = client
	s.selected = ""
	s.logger.Info().Str("addr", addr).Msg("connected")
	return nil
}

func (s *Session) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.cfg.DialTimeout}
	if !s.cfg.TLS {
		return dialer.DialContext(ctx, "tcp", addr)
	}

	tlsConfig := &tls.Config{ServerName: s.cfg.Host}
	if s.cfg.TLSConfig != nil {
		tlsConfig = s.cfg.TLSConfig.Clone()
		if tlsConfig.ServerName == "" {
			tlsConfig.ServerName = s.cfg.Host
		}
	}
	tlsDialer := &tls.Dialer{NetDialer: dialer, Config: tlsConfig}
	return tlsDialer.DialContext(ctx, "tcp", addr)
}

// armDeadline pushes the context deadline (or the command timeout) onto
// the socket and forces it when ctx is cancelled. The returned release
// func clears the deadline; it reports false if ctx was cancelled in the
// meantime, in which case the connection must not be reused.
func (s *Session) armDeadline(ctx context.Context, conn net.Conn) func() bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.cfg.CommandTimeout)
	}
	_ = conn.SetDeadline(deadline)

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})

	return func() bool {
		if !stop() {
			return false
		}
		_ = conn.SetDeadline(time.Time{})
		return true
	}
}

// do runs fn with an authenticated client under the session lock.
func (s *Session) do(ctx context.Context, op string, mbox mailbox.ID, fn func(c *imapclient.Client) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return &ProtocolError{Op: op, Mailbox: string(mbox), Err: err}
	}
	if err := s.connectLocked(ctx); err != nil {
		return err
	}

	conn := s.conn
	release := s.armDeadline(ctx, conn)
	err := fn(s.client)
	healthy := release()

	if err == nil && healthy {
		return nil
	}
	if err == nil {
		err = ctx.Err()
	}

	var imapErr *imap.Error
	if !healthy || !errors.As(err, &imapErr) {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		s.logger.Warn().Err(err).Str("op", op).Str("mailbox", string(mbox)).Msg("dropping connection")
		s.dropLocked()
	}

	return &ProtocolError{Op: op, Mailbox: string(mbox), Err: err}
}

func (s *Session) dropLocked() {
	if s.client != nil {
		_ = s.client.Close()
	}
	s.client = nil
	s.conn = nil
	s.selected = ""
}

// selectLocked issues SELECT unconditionally. The server deselects on a
// failed SELECT, so the cached name is cleared first.
func (s *Session) selectLocked(c *imapclient.Client, mbox mailbox.ID) (*imap.SelectData, error) {
	s.selected = ""
	data, err := c.Select(string(mbox), nil).Wait()
	if err != nil {
		return nil, err
	}
	s.selected = mbox
	return data, nil
}

// Select selects mbox.
func (s *Session) Select(ctx context.Context, mbox mailbox.ID) (*imap.SelectData, error) {
	var data *imap.SelectData
	err := s.do(ctx, "select", mbox, func(c *imapclient.Client) error {
		var err error
		data, err = s.selectLocked(c, mbox)
		return err
	})
	return data, err
}

// StatusCount returns the number of messages in mbox using STATUS.
func (s *Session) StatusCount(ctx context.Context, mbox mailbox.ID) (int, error) {
	var count int
	err := s.do(ctx, "status", mbox, func(c *imapclient.Client) error {
		var err error
		count, err = statusCount(c, mbox)
		return err
	})
	return count, err
}

func statusCount(c *imapclient.Client, mbox mailbox.ID) (int, error) {
	data, err := c.Status(string(mbox), &imap.StatusOptions{NumMessages: true}).Wait()
	if err != nil {
		return 0, err
	}
	if data.NumMessages == nil {
		return 0, nil
	}
	return int(*data.NumMessages), nil
}

var (
	textSection = &imap.FetchItemBodySection{Specifier: imap.PartSpecifierText, Peek: true}
	fullSection = &imap.FetchItemBodySection{Peek: true}
)

func messageFetchOptions() *imap.FetchOptions {
	return &imap.FetchOptions{
		UID:           true,
		Envelope:      true,
		BodyStructure: &imap.FetchItemBodyStructure{},
		BodySection:   []*imap.FetchItemBodySection{textSection, fullSection},
	}
}

func rawFromBuffer(buf *imapclient.FetchMessageBuffer) *mail.Raw {
	return &mail.Raw{
		UID:           uint32(buf.UID),
		Envelope:      buf.Envelope,
		BodyStructure: buf.BodyStructure,
		Text:          buf.FindBodySection(textSection),
		Message:       buf.FindBodySection(fullSection),
	}
}

// FetchAll returns every message of mbox in sequence order. An empty
// mailbox returns an empty slice without issuing FETCH.
func (s *Session) FetchAll(ctx context.Context, mbox mailbox.ID) ([]*mail.Raw, error) {
	raws := []*mail.Raw{}
	err := s.do(ctx, "fetch", mbox, func(c *imapclient.Client) error {
		if _, err := s.selectLocked(c, mbox); err != nil {
			return err
		}

		count, err := statusCount(c, mbox)
		if err != nil {
			return err
		}
		if count == 0 {
			return nil
		}

		var seqSet imap.SeqSet
		seqSet.AddRange(1, uint32(count))

		bufs, err := c.Fetch(seqSet, messageFetchOptions()).Collect()
		if err != nil {
			return err
		}
		for _, buf := range bufs {
			raws = append(raws, rawFromBuffer(buf))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("mailbox", string(mbox)).Int("count", len(raws)).Msg("fetched mailbox")
	return raws, nil
}

// FetchByUID returns the message with the given UID, or nil without an
// error when it does not exist.
func (s *Session) FetchByUID(ctx context.Context, uid uint32, mbox mailbox.ID) (*mail.Raw, error) {
	var raw *mail.Raw
	err := s.do(ctx, "uid fetch", mbox, func(c *imapclient.Client) error {
		if _, err := s.selectLocked(c, mbox); err != nil {
			return err
		}

		bufs, err := c.Fetch(imap.UIDSetNum(imap.UID(uid)), messageFetchOptions()).Collect()
		if err != nil {
			return err
		}
		for _, buf := range bufs {
			if uint32(buf.UID) == uid {
				raw = rawFromBuffer(buf)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func uidExists(c *imapclient.Client, uid uint32) (bool, error) {
	bufs, err := c.Fetch(imap.UIDSetNum(imap.UID(uid)), &imap.FetchOptions{UID: true}).Collect()
	if err != nil {
		return false, err
	}
	for _, buf := range bufs {
		if uint32(buf.UID) == uid {
			return true, nil
		}
	}
	return false, nil
}

// MoveByUID moves a message from one mailbox to another. A missing UID
// yields NotFound without an error.
func (s *Session) MoveByUID(ctx context.Context, uid uint32, from, to mailbox.ID) (mail.Outcome, error) {
	outcome := mail.Failed
	err := s.do(ctx, "uid move", from, func(c *imapclient.Client) error {
		if _, err := s.selectLocked(c, from); err != nil {
			return err
		}

		exists, err := uidExists(c, uid)
		if err != nil {
			return err
		}
		if !exists {
			outcome = mail.NotFound
			return nil
		}

		if _, err := c.Move(imap.UIDSetNum(imap.UID(uid)), string(to)).Wait(); err != nil {
			return err
		}
		outcome = mail.Applied
		return nil
	})
	if err != nil {
		return mail.Failed, err
	}

	event := s.logger.Info()
	if outcome == mail.NotFound {
		event = s.logger.Warn()
	}
	event.Uint32("uid", uid).
		Str("from", string(from)).
		Str("to", string(to)).
		Stringer("outcome", outcome).
		Msg("move")
	return outcome, nil
}

// DeleteByUID flags a message as \Deleted and expunges the mailbox. When
// the UID does not exist nothing is expunged and NotFound is returned.
func (s *Session) DeleteByUID(ctx context.Context, uid uint32, mbox mailbox.ID) (mail.Outcome, error) {
	outcome := mail.Failed
	err := s.do(ctx, "uid store", mbox, func(c *imapclient.Client) error {
		if _, err := s.selectLocked(c, mbox); err != nil {
			return err
		}

		bufs, err := c.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
			Op:    imap.StoreFlagsAdd,
			Flags: []imap.Flag{imap.FlagDeleted},
		}, nil).Collect()
		if err != nil {
			return err
		}
		if len(bufs) == 0 {
			outcome = mail.NotFound
			return nil
		}

		if err := c.Expunge().Close(); err != nil {
			return err
		}
		outcome = mail.Applied
		return nil
	})
	if err != nil {
		return mail.Failed, err
	}

	event := s.logger.Info()
	if outcome == mail.NotFound {
		event = s.logger.Warn()
	}
	event.Uint32("uid", uid).
		Str("mailbox", string(mbox)).
		Stringer("outcome", outcome).
		Msg("delete")
	return outcome, nil
}

// Disconnect closes the selected mailbox, which expunges any message
// still flagged \Deleted, then logs out. It is safe to call when not
// connected.
func (s *Session) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	release := s.armDeadline(ctx, s.conn)
	var errs []error
	if s.selected != "" {
		if err := s.client.UnselectAndExpunge().Wait(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.selected, err))
		}
	}
	if err := s.client.Logout().Wait(); err != nil {
		errs = append(errs, fmt.Errorf("logout: %w", err))
	}
	release()

	s.dropLocked()
	s.logger.Info().Msg("disconnected")

	if err := errors.Join(errs...); err != nil {
		return &ProtocolError{Op: "disconnect", Err: err}
	}
	return nil
}

// Connected reports whether a connection is currently established.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil
}
