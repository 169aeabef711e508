package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nhle/mailbox-admin/internal/imap"
	"github.com/nhle/mailbox-admin/internal/mailbox"
)

// EnvPrefix prefixes environment overrides, e.g. MAILADMIN_IMAP_PASSWORD.
const EnvPrefix = "MAILADMIN"

// IMAPConfig holds the connection settings for the list server mailbox
// account.
type IMAPConfig struct {
	Host  string `mapstructure:"host" yaml:"host"`
	Port  int    `mapstructure:"port" yaml:"port"`
	Email string `mapstructure:"email" yaml:"email"`

	// Password is optional; when empty the keyring is consulted.
	Password string `mapstructure:"password" yaml:"password,omitempty"`

	TLS               bool `mapstructure:"tls" yaml:"tls"`
	CommandTimeoutSec int  `mapstructure:"command_timeout_sec" yaml:"command_timeout_sec"`
	DialTimeoutSec    int  `mapstructure:"dial_timeout_sec" yaml:"dial_timeout_sec"`
	Debug             bool `mapstructure:"debug" yaml:"debug"`
}

// MailboxesConfig lists the catch-all mailboxes shown next to the
// default ones.
type MailboxesConfig struct {
	CatchAll []string `mapstructure:"catch_all" yaml:"catch_all"`
}

// DisplayConfig holds rendering preferences shared by the front ends.
type DisplayConfig struct {
	Theme           string `mapstructure:"theme" yaml:"theme"`
	Locale          string `mapstructure:"locale" yaml:"locale"`
	Timezone        string `mapstructure:"timezone" yaml:"timezone"`
	PageSize        int    `mapstructure:"page_size" yaml:"page_size"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Addr              string `mapstructure:"addr" yaml:"addr"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`
}

// JournalConfig enables the sqlite action journal when Path is set.
type JournalConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// MetricsConfig toggles the Prometheus instruments.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP      IMAPConfig      `mapstructure:"imap" yaml:"imap"`
	Mailboxes MailboxesConfig `mapstructure:"mailboxes" yaml:"mailboxes"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http"`
	Journal   JournalConfig   `mapstructure:"journal" yaml:"journal"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/mailadmin.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailadmin")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailadmin/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

var defaults = map[string]any{
	"imap.host":                 "",
	"imap.port":                 imap.DefaultPort,
	"imap.email":                "",
	"imap.password":             "",
	"imap.tls":                  true,
	"imap.command_timeout_sec":  30,
	"imap.dial_timeout_sec":     15,
	"imap.debug":                false,
	"mailboxes.catch_all":       []string{},
	"display.theme":             "default",
	"display.locale":            "de",
	"display.timezone":          "",
	"display.page_size":         25,
	"display.poll_interval_sec": 120,
	"http.addr":                 ":8080",
	"http.request_timeout_sec":  60,
	"journal.path":              "",
	"metrics.enabled":           false,
	"log.level":                 "info",
	"log.format":                "console",
	"log.file":                  "",
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	cfg, err := unmarshal(newViper(""))
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	}
	v.SetConfigType("yaml")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads configuration from the given YAML file path using Viper,
// applying MAILADMIN_* environment overrides. If the file does not exist,
// the defaults (plus overrides) are returned.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed. The password is never written;
// it belongs in the keyring.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	imapCfg := cfg.IMAP
	imapCfg.Password = ""
	v.Set("imap", map[string]any{
		"host":                imapCfg.Host,
		"port":                imapCfg.Port,
		"email":               imapCfg.Email,
		"tls":                 imapCfg.TLS,
		"command_timeout_sec": imapCfg.CommandTimeoutSec,
		"dial_timeout_sec":    imapCfg.DialTimeoutSec,
		"debug":               imapCfg.Debug,
	})
	v.Set("mailboxes", cfg.Mailboxes)
	v.Set("display", cfg.Display)
	v.Set("http", cfg.HTTP)
	v.Set("journal", cfg.Journal)
	v.Set("metrics", cfg.Metrics)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Validate reports missing settings required to reach the server.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.IMAP.Host) == "" {
		errs = append(errs, errors.New("imap.host is required"))
	}
	if strings.TrimSpace(c.IMAP.Email) == "" {
		errs = append(errs, errors.New("imap.email is required"))
	}
	if c.IMAP.Port < 0 || c.IMAP.Port > 65535 {
		errs = append(errs, fmt.Errorf("imap.port %d out of range", c.IMAP.Port))
	}
	return errors.Join(errs...)
}

// Resolver builds the mailbox resolver for the configured catch-all
// mailboxes.
func (c *AppConfig) Resolver() *mailbox.Resolver {
	return mailbox.NewResolver(c.Mailboxes.CatchAll...)
}

// Location returns the configured display timezone, or the local zone.
func (c *AppConfig) Location() (*time.Location, error) {
	if c.Display.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Display.Timezone, err)
	}
	return loc, nil
}

// SessionConfig converts the IMAP settings into a session config using
// the given password.
func (c *AppConfig) SessionConfig(password string) imap.Config {
	return imap.Config{
		Host:           c.IMAP.Host,
		Port:           c.IMAP.Port,
		Username:       c.IMAP.Email,
		Password:       password,
		TLS:            c.IMAP.TLS,
		DialTimeout:    time.Duration(c.IMAP.DialTimeoutSec) * time.Second,
		CommandTimeout: time.Duration(c.IMAP.CommandTimeoutSec) * time.Second,
		Debug:          c.IMAP.Debug,
	}
}

// PollInterval returns the count refresh interval.
func (c *AppConfig) PollInterval() time.Duration {
	if c.Display.PollIntervalSec <= 0 {
		return 0
	}
	return time.Duration(c.Display.PollIntervalSec) * time.Second
}

// RequestTimeout returns the per-request timeout of the HTTP API.
func (c *AppConfig) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSec) * time.Second
}
