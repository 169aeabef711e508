package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/mailbox-admin/internal/app"
	"github.com/nhle/mailbox-admin/internal/credential"
	"github.com/nhle/mailbox-admin/internal/model"
	appsync "github.com/nhle/mailbox-admin/internal/sync"
	"github.com/nhle/mailbox-admin/internal/theme"
	"github.com/nhle/mailbox-admin/internal/ui/setup"
)

var errSetupAborted = errors.New("setup aborted")

func runTUI(path string, cfg *model.AppConfig) error {
	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := theme.Apply(cfg.Display.Theme); err != nil {
		logger.Warn().Err(err).Strs("available", theme.Names()).Msg("using default theme")
	}

	store := openCredentials(logger)

	if err := cfg.Validate(); err != nil {
		logger.Info().Err(err).Msg("configuration incomplete, starting setup")
		cfg, err = setupProgram(path, cfg, store)
		if err != nil {
			return err
		}
	}

	st, err := newStack(cfg, store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing service")
		}
	}()

	refresher := appsync.New(st.service, cfg.PollInterval(), logger)
	defer refresher.Stop()

	m := app.New(app.Options{
		Service:   st.service,
		Resolver:  st.resolver,
		Refresher: refresher,
		Journal:   st.journal,
		Account:   cfg.IMAP.Email,
		Locale:    st.locale,
		PageSize:  cfg.Display.PageSize,
		Logger:    logger,
	})

	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running tui: %w", err)
	}
	return nil
}

func runSetup(path string, cfg *model.AppConfig) error {
	logger, closeLog, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := theme.Apply(cfg.Display.Theme); err != nil {
		logger.Warn().Err(err).Msg("using default theme")
	}

	saved, err := setupProgram(path, cfg, openCredentials(logger))
	if err != nil {
		return err
	}
	fmt.Printf("Saved configuration for %s to %s\n", saved.IMAP.Email, path)
	return nil
}

// setupProgram runs the setup form on its own and returns the saved
// configuration.
func setupProgram(path string, cfg *model.AppConfig, store *credential.Store) (*model.AppConfig, error) {
	opts := setup.Options{Path: path, QuitOnDone: true}
	if store != nil {
		opts.Credentials = store
	}

	final, err := tea.NewProgram(setup.New(cfg, opts, 80, 24)).Run()
	if err != nil {
		return nil, fmt.Errorf("running setup: %w", err)
	}

	m, ok := final.(setup.Model)
	if !ok || m.Saved() == nil {
		return nil, errSetupAborted
	}
	return m.Saved(), nil
}
