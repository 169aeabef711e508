package setup

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nhle/mailbox-admin/internal/credential"
	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/model"
)

type fakeCreds map[string]string

func (f fakeCreds) Set(key, value string) error {
	f[key] = value
	return nil
}

func fillForm(m Model) {
	m.values.host = " imap.example.com "
	m.values.port = "1993"
	m.values.email = "lists@example.com"
	m.values.password = "secret"
	m.values.tls = false
	m.values.catchAll = "list-a, ,LIST-B"
}

func TestValidateAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	creds := fakeCreds{}

	var validated imap.Config
	m := New(nil, Options{
		Path:        path,
		Credentials: creds,
		Validate: func(_ context.Context, cfg imap.Config) error {
			validated = cfg
			return nil
		},
	}, 80, 24)
	fillForm(m)

	msg, ok := m.validateAndSave()().(savedMsg)
	if !ok {
		t.Fatal("Expected savedMsg")
	}
	if msg.err != nil {
		t.Fatalf("Expected no error, got %v", msg.err)
	}

	if validated.Host != "imap.example.com" || validated.Port != 1993 || validated.Password != "secret" || validated.TLS {
		t.Errorf("Unexpected validated config %+v", validated)
	}
	if creds[credential.IMAPKey("lists@example.com")] != "secret" {
		t.Errorf("Expected password in keyring, got %v", creds)
	}

	loaded, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.IMAP.Host != "imap.example.com" || loaded.IMAP.Password != "" {
		t.Errorf("Unexpected saved config %+v", loaded.IMAP)
	}
	if len(loaded.Mailboxes.CatchAll) != 2 || loaded.Mailboxes.CatchAll[1] != "LIST-B" {
		t.Errorf("Expected two catch-all mailboxes, got %v", loaded.Mailboxes.CatchAll)
	}
}

func TestValidateAndSaveConnectionFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	creds := fakeCreds{}

	m := New(nil, Options{
		Path:        path,
		Credentials: creds,
		Validate: func(context.Context, imap.Config) error {
			return errors.New("login rejected")
		},
	}, 80, 24)
	fillForm(m)

	msg := m.validateAndSave()().(savedMsg)
	if msg.err == nil {
		t.Fatal("Expected error")
	}
	if len(creds) != 0 {
		t.Errorf("Expected nothing stored, got %v", creds)
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IMAP.Host != "" {
		t.Errorf("Expected no config file written, got host %q", cfg.IMAP.Host)
	}
}

func TestNewPrefillsFromConfig(t *testing.T) {
	cfg := model.DefaultAppConfig()
	cfg.IMAP.Host = "mail.example.org"
	cfg.Mailboxes.CatchAll = []string{"A", "B"}

	m := New(cfg, Options{}, 80, 24)

	if m.values.host != "mail.example.org" || m.values.port != "993" || m.values.catchAll != "A, B" {
		t.Errorf("Unexpected prefilled values %+v", *m.values)
	}
}

func TestValidatePort(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"993", false},
		{" 143 ", false},
		{"", true},
		{"abc", true},
		{"0", true},
		{"70000", true},
	}

	for _, tt := range tests {
		if err := validatePort(tt.in); (err != nil) != tt.wantErr {
			t.Errorf("validatePort(%q): expected error=%v, got %v", tt.in, tt.wantErr, err)
		}
	}
}
