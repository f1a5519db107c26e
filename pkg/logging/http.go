package logging

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// RequestIDHeader carries the request id back to the client.
const RequestIDHeader = "X-Request-Id"

// HTTPMiddleware attaches logger to each request context, assigns a request
// id, and writes one access log line per request.
func HTTPMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		hlog.NewHandler(logger),
		hlog.RequestIDHandler("req_id", RequestIDHeader),
		hlog.RemoteAddrHandler("ip"),
		hlog.UserAgentHandler("user_agent"),
		hlog.AccessHandler(accessLog),
	}

	return func(next http.Handler) http.Handler {
		h := next
		for i := len(chain) - 1; i >= 0; i-- {
			h = chain[i](h)
		}
		return h
	}
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	logger := hlog.FromRequest(r)
	ev := logger.Info()
	switch {
	case status >= 500:
		ev = logger.Error()
	case r.URL.Path == "/health" || r.URL.Path == "/metrics":
		ev = logger.Debug()
	}
	ev.Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}
