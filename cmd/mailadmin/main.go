// Command mailadmin administers the mailboxes of a mailing-list server
// account. It runs the terminal UI by default, the JSON API with
// "serve", and the connection setup form with "setup".
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/credential"
	"github.com/nhle/mailbox-admin/internal/logging"
	"github.com/nhle/mailbox-admin/internal/model"
)

const usage = `usage: mailadmin [flags] [tui|serve|setup]

commands:
  tui     browse and clean up the mailboxes (default)
  serve   run the JSON API
  setup   edit and verify the connection settings

flags:
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	configFlag := flag.String("config", model.DefaultConfigPath(), "Path to the YAML configuration file.")
	loglevelFlag := flag.String("loglevel", "", "Overrides log.level from the configuration.")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := "tui"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := model.LoadConfig(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *loglevelFlag != "" {
		cfg.Log.Level = *loglevelFlag
	}

	switch command {
	case "tui":
		err = runTUI(*configFlag, cfg)
	case "serve":
		err = runServe(cfg)
	case "setup":
		err = runSetup(*configFlag, cfg)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the root logger. The terminal UI owns the screen, so
// it always logs to a file, mailadmin.log in the config directory unless
// log.file says otherwise.
func newLogger(cfg *model.AppConfig, toFile bool) (zerolog.Logger, func(), error) {
	path := cfg.Log.File
	if path == "" && toFile {
		path = filepath.Join(model.ConfigDir(), "mailadmin.log")
	}
	if path == "" {
		return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format}), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: f})
	return logger, func() { _ = f.Close() }, nil
}

// openCredentials opens the keyring. A keyring that cannot be opened is
// not fatal as long as the password comes from the configuration.
func openCredentials(logger zerolog.Logger) *credential.Store {
	store, err := credential.Open(model.ConfigDir())
	if err != nil {
		logger.Warn().Err(err).Msg("keyring unavailable")
		return nil
	}
	return store
}
