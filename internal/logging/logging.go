// Package logging builds the zerolog root logger and holds helpers for
// keeping personal data out of log output.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the output of the root logger.
type Options struct {
	Level  string
	Format string // "console" or "json"
	Output io.Writer
}

// New returns the root logger. An unknown level falls back to info.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if !strings.EqualFold(opts.Format, "json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: out != os.Stderr}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// MaskEmail keeps the first and last character of each part of an
// address, e.g. "alice@example.com" becomes "a***e@e*****e.c*m".
func MaskEmail(s string) string {
	s = strings.TrimSpace(s)
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return s
	}

	parts := strings.Split(s[at+1:], ".")
	for i, p := range parts {
		parts[i] = maskPart(p)
	}
	return maskPart(s[:at]) + "@" + strings.Join(parts, ".")
}

func maskPart(part string) string {
	if len(part) <= 1 {
		return "*"
	}
	return part[:1] + strings.Repeat("*", max(0, len(part)-2)) + part[len(part)-1:]
}
