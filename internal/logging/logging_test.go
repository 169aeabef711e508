package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"alice@example.com": "a***e@e*****e.c*m",
		"a@b.ch":            "*@*.ch",
		"no-address":        "no-address",
		"@example.com":      "@example.com",
		"trailing@":         "trailing@",
	}
	for in, want := range tests {
		if got := MaskEmail(in); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewJSONLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "warn", Format: "json", Output: &buf})

	logger.Info().Msg("hidden")
	logger.Warn().Str("mailbox", "INBOX").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Expected info to be filtered, got %s", out)
	}
	if !strings.Contains(out, `"mailbox":"INBOX"`) {
		t.Errorf("Expected structured field, got %s", out)
	}
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "chatty", Format: "json", Output: &buf})

	logger.Debug().Msg("debug")
	logger.Info().Msg("info")

	if strings.Contains(buf.String(), `"debug"`) {
		t.Errorf("Expected debug to be filtered, got %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"info"`) {
		t.Errorf("Expected info line, got %s", buf.String())
	}
}
