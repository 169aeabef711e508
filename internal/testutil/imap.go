package testutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

const (
	IMAPUser     = "lists@example.com"
	IMAPPassword = "secret"
)

// IMAPServer is an in-memory IMAP server listening on a random local
// port, preloaded with the INBOX, SPAMMING and FAILED mailboxes.
type IMAPServer struct {
	Host string
	Port int

	t      *testing.T
	server *imapserver.Server
}

// NewIMAPServer starts the server and stops it when the test completes.
// Extra mailboxes are created next to the default ones.
func NewIMAPServer(t *testing.T, extraMailboxes ...string) *IMAPServer {
	t.Helper()

	mem := imapmemserver.New()
	user := imapmemserver.NewUser(IMAPUser, IMAPPassword)
	for _, name := range append([]string{"INBOX", "SPAMMING", "FAILED"}, extraMailboxes...) {
		if err := user.Create(name, nil); err != nil {
			t.Fatalf("creating mailbox %s: %v", name, err)
		}
	}
	mem.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
		InsecureAuth: true,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) {
			t.Logf("imap server stopped: %v", err)
		}
	}()

	t.Cleanup(func() {
		_ = server.Close()
	})

	addr := ln.Addr().(*net.TCPAddr)
	return &IMAPServer{
		Host:   addr.IP.String(),
		Port:   addr.Port,
		t:      t,
		server: server,
	}
}

// Addr returns host:port of the server.
func (s *IMAPServer) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Message is a test message to be appended to a mailbox.
type Message struct {
	From    string
	Subject string
	Date    time.Time
	Body    string
}

// RFC822 renders m as a minimal single-part text/plain message.
func (m Message) RFC822() []byte {
	date := m.Date
	if date.IsZero() {
		date = time.Date(2021, 3, 1, 10, 0, 0, 0, time.UTC)
	}
	from := m.From
	if from == "" {
		from = "Alice <alice@example.com>"
	}
	return []byte(fmt.Sprintf("From: %s\r\n"+
		"Sender: %s\r\n"+
		"To: list@example.com\r\n"+
		"Subject: %s\r\n"+
		"Date: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"\r\n"+
		"%s", from, from, m.Subject, date.Format(time.RFC1123Z), m.Body))
}

// Append stores raw messages in mbox through a separate client
// connection and returns their UIDs.
func (s *IMAPServer) Append(mbox string, messages ...[]byte) []uint32 {
	s.t.Helper()

	c := s.dial()
	defer func() { _ = c.Logout().Wait(); _ = c.Close() }()

	uids := make([]uint32, 0, len(messages))
	for _, msg := range messages {
		cmd := c.Append(mbox, int64(len(msg)), nil)
		if _, err := cmd.Write(msg); err != nil {
			s.t.Fatalf("writing message: %v", err)
		}
		if err := cmd.Close(); err != nil {
			s.t.Fatalf("closing append: %v", err)
		}
		data, err := cmd.Wait()
		if err != nil {
			s.t.Fatalf("appending to %s: %v", mbox, err)
		}
		uids = append(uids, uint32(data.UID))
	}
	return uids
}

// Count returns the number of messages in mbox as seen by a fresh
// connection.
func (s *IMAPServer) Count(mbox string) int {
	s.t.Helper()

	c := s.dial()
	defer func() { _ = c.Logout().Wait(); _ = c.Close() }()

	data, err := c.Status(mbox, &imap.StatusOptions{NumMessages: true}).Wait()
	if err != nil {
		s.t.Fatalf("status %s: %v", mbox, err)
	}
	return int(*data.NumMessages)
}

// AddFlags sets flags on the message uid in mbox through a separate
// client connection without expunging.
func (s *IMAPServer) AddFlags(mbox string, uid uint32, flags ...imap.Flag) {
	s.t.Helper()

	c := s.dial()
	defer func() { _ = c.Logout().Wait(); _ = c.Close() }()

	if _, err := c.Select(mbox, nil).Wait(); err != nil {
		s.t.Fatalf("selecting %s: %v", mbox, err)
	}
	store := c.Store(imap.UIDSetNum(imap.UID(uid)), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  flags,
	}, nil)
	if err := store.Close(); err != nil {
		s.t.Fatalf("flagging %d in %s: %v", uid, mbox, err)
	}
}

func (s *IMAPServer) dial() *imapclient.Client {
	s.t.Helper()

	c, err := imapclient.DialInsecure(s.Addr(), nil)
	if err != nil {
		s.t.Fatalf("dialing test server: %v", err)
	}
	if err := c.Login(IMAPUser, IMAPPassword).Wait(); err != nil {
		s.t.Fatalf("logging in to test server: %v", err)
	}
	return c
}
