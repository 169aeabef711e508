package imap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
)

// ConnectionError indicates that the server could not be reached or
// rejected the credentials. It is fatal for the current operation.
type ConnectionError struct {
	Addr string
	User string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("imap: connecting to %s as %s: %v", e.Addr, e.User, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError is a failed exchange on an established connection,
// either a NO/BAD response or a broken socket.
type ProtocolError struct {
	Op      string
	Mailbox string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Mailbox == "" {
		return fmt.Sprintf("imap: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("imap: %s %s: %v", e.Op, e.Mailbox, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a
// ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsProtocolError reports whether err (or any error in its chain) is a
// ProtocolError.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// IsTimeout reports whether err was caused by a deadline or a cancelled
// context.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
