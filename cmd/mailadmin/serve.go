package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nhle/mailbox-admin/internal/model"
	"github.com/nhle/mailbox-admin/internal/web"
)

const shutdownTimeout = 10 * time.Second

func runServe(cfg *model.AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration, run \"mailadmin setup\": %w", err)
	}

	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := newStack(cfg, openCredentials(logger), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing service")
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newHandler(cfg, st, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http: %w", err)
	}
	return nil
}

// newHandler mounts the mailbox API and, when metrics are enabled, the
// Prometheus endpoint.
func newHandler(cfg *model.AppConfig, st *stack, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	web.New(st.service, st.resolver, web.Options{
		Journal:        st.journal,
		Locale:         st.locale,
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         logger,
	}).Register("", mux)
	if st.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(st.registry, promhttp.HandlerOpts{}))
	}
	return web.AccessLog(logger, mux)
}
