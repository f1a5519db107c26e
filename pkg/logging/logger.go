// Package logging configures the dashboard's zerolog loggers.
//
// Setup installs the process logger once at startup; packages then derive
// a logger tagged with their component name through NewLogger or For.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ServiceName is attached to every log line.
const ServiceName = "partner-dashboard"

// Component names used in the "component" field.
const (
	ComponentAPI         = "api"
	ComponentUpstream    = "upstream"
	ComponentCache       = "row-cache"
	ComponentDateFilter  = "datefilter"
	ComponentAuth        = "auth"
	ComponentCredentials = "credentials"
	ComponentSigninGuard = "signin-guard"
)

// Config selects level and encoding of the process logger.
type Config struct {
	Level  string    // debug, info, warn or error; anything else means info
	Pretty bool      // console output instead of JSON
	Output io.Writer // nil means os.Stderr
}

// Setup installs the process logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).With().
		Timestamp().
		Str("service", ServiceName).
		Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to a zerolog level. Unknown names are info.
func ParseLevel(name string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger derives a component logger from the process logger.
// Call it after Setup; the result keeps the writer current at call time.
func NewLogger(component string) zerolog.Logger {
	return For(log.Logger, component)
}

// For derives a component logger from parent.
func For(parent zerolog.Logger, component string) zerolog.Logger {
	return parent.With().Str("component", component).Logger()
}

// Level guidelines:
//
// Debug: cache hits and joined refreshes, rows dropped by the date filter,
// sign-in failure counters.
//
// Info: upstream fetches and cache refreshes, sign-ins and sign-outs,
// access log lines, startup and shutdown.
//
// Warn: upstream failures (previous cache entry kept), unparseable
// instants in the date column, lockouts and throttled sign-ins.
//
// Error: handler failures returned as 500, credential store failures,
// recovered panics.
//
// Fields: component, req_id (also returned as X-Request-Id), status,
// duration, rows, email.
