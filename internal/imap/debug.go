package imap

import (
	"strings"

	"github.com/rs/zerolog"
)

// debugWriter receives the raw protocol trace from imapclient and logs it
// at trace level. LOGIN lines are replaced so credentials never reach the
// log.
type debugWriter struct {
	logger zerolog.Logger
}

func (w *debugWriter) Write(p []byte) (int, error) {
	data := strings.TrimSpace(string(p))
	if strings.Contains(strings.ToUpper(data), "LOGIN") {
		data = "[LOGIN command, credentials redacted]"
	}
	w.logger.Trace().Str("imap_data", data).Msg("protocol")
	return len(p), nil
}
