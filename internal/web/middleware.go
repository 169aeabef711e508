package web

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestIDHeader echoes the id attached to every request log line.
const RequestIDHeader = "X-Request-Id"

// AccessLog logs one line per request and stores a request scoped logger
// in the request context, reachable through hlog.FromRequest.
func AccessLog(logger zerolog.Logger, next http.Handler) http.Handler {
	logger = logger.With().Str("component", "http").Logger()

	access := hlog.AccessHandler(func(r *http.Request, status, size int, took time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("took", took).
			Msg("request")
	})

	return hlog.NewHandler(logger)(
		hlog.RequestIDHandler("request_id", RequestIDHeader)(
			access(next),
		),
	)
}
