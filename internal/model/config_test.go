package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nhle/mailbox-admin/internal/mailbox"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.IMAP.Port != 993 {
		t.Errorf("Expected port 993, got %d", cfg.IMAP.Port)
	}
	if !cfg.IMAP.TLS {
		t.Error("Expected TLS to default to true")
	}
	if cfg.IMAP.CommandTimeoutSec != 30 {
		t.Errorf("Expected command timeout 30, got %d", cfg.IMAP.CommandTimeoutSec)
	}
	if cfg.Display.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", cfg.Display.PageSize)
	}
	if cfg.Display.Locale != "de" {
		t.Errorf("Expected locale de, got %q", cfg.Display.Locale)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("Expected addr :8080, got %q", cfg.HTTP.Addr)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics to be disabled")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `imap:
  host: mail.example.com
  port: 143
  email: lists@example.com
  tls: false
mailboxes:
  catch_all:
    - news-catchall
display:
  locale: fr
  timezone: Europe/Zurich
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.IMAP.Host != "mail.example.com" || cfg.IMAP.Port != 143 || cfg.IMAP.TLS {
		t.Errorf("Unexpected imap config: %+v", cfg.IMAP)
	}
	if cfg.IMAP.CommandTimeoutSec != 30 {
		t.Errorf("Expected default command timeout, got %d", cfg.IMAP.CommandTimeoutSec)
	}
	if len(cfg.Mailboxes.CatchAll) != 1 || cfg.Mailboxes.CatchAll[0] != "news-catchall" {
		t.Errorf("Unexpected catch-all: %v", cfg.Mailboxes.CatchAll)
	}

	known := cfg.Resolver().Known()
	if len(known) != 4 || known[3] != mailbox.ID("NEWS-CATCHALL") {
		t.Errorf("Unexpected known mailboxes: %v", known)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MAILADMIN_IMAP_PASSWORD", "from-env")
	t.Setenv("MAILADMIN_IMAP_HOST", "env.example.com")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.IMAP.Password != "from-env" {
		t.Errorf("Expected password from env, got %q", cfg.IMAP.Password)
	}
	if cfg.IMAP.Host != "env.example.com" {
		t.Errorf("Expected host from env, got %q", cfg.IMAP.Host)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("imap: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestSaveConfigRoundTripOmitsPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.IMAP.Host = "mail.example.com"
	cfg.IMAP.Email = "lists@example.com"
	cfg.IMAP.Password = "secret"
	cfg.Mailboxes.CatchAll = []string{"LIST-A"}

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Errorf("Password must not be written, got:\n%s", raw)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.IMAP.Host != "mail.example.com" || loaded.IMAP.Email != "lists@example.com" {
		t.Errorf("Unexpected imap config after round trip: %+v", loaded.IMAP)
	}
	if len(loaded.Mailboxes.CatchAll) != 1 || loaded.Mailboxes.CatchAll[0] != "LIST-A" {
		t.Errorf("Unexpected catch-all after round trip: %v", loaded.Mailboxes.CatchAll)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultAppConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for missing host and email")
	}

	cfg.IMAP.Host = "mail.example.com"
	cfg.IMAP.Email = "lists@example.com"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestSessionConfig(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.IMAP.Host = "mail.example.com"
	cfg.IMAP.Email = "lists@example.com"

	sc := cfg.SessionConfig("pw")
	if sc.Username != "lists@example.com" || sc.Password != "pw" {
		t.Errorf("Unexpected credentials: %+v", sc)
	}
	if sc.CommandTimeout != 30*time.Second || sc.DialTimeout != 15*time.Second {
		t.Errorf("Unexpected timeouts: %v / %v", sc.CommandTimeout, sc.DialTimeout)
	}
	if !sc.TLS {
		t.Error("Expected TLS")
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultAppConfig()
	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Errorf("Expected local zone, got %v (%v)", loc, err)
	}

	cfg.Display.Timezone = "Not/AZone"
	if _, err := cfg.Location(); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}
