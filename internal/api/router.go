// Package api exposes the dashboard HTTP API: order listing and export,
// sign-in sessions, and operational endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redigma/partner-dashboard/pkg/auth"
	"github.com/redigma/partner-dashboard/pkg/cache"
	"github.com/redigma/partner-dashboard/pkg/logging"
	"github.com/redigma/partner-dashboard/pkg/metrics"
	"github.com/redigma/partner-dashboard/pkg/ratelimit"
	"github.com/redigma/partner-dashboard/pkg/rows"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RowSource serves the cached upstream row set.
type RowSource interface {
	Rows(ctx context.Context, forceRefresh bool) ([]rows.Row, error)
	Invalidate()
	Snapshot() cache.Snapshot
}

// Authenticator verifies sign-in credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*auth.Identity, error)
}

// SigninGuard tracks failed sign-ins per account.
type SigninGuard interface {
	ShouldAllow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) (*ratelimit.AttemptState, error)
	Reset(ctx context.Context, email string) error
}

// Pinger reports backing store health.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Rows          RowSource
	DateColumn    string
	HiddenColumns []string

	// AuthEnabled gates the data and admin routes behind a session.
	// When false the auth routes are not registered.
	AuthEnabled   bool
	Authenticator Authenticator
	Sessions      auth.SessionStore
	Guard         SigninGuard          // optional
	IPLimiter     *ratelimit.IPLimiter // optional
	CookieSecure  bool

	Redis  Pinger // optional, checked by /ready
	Logger zerolog.Logger
	Now    func() time.Time
}

// Server holds the handlers.
type Server struct {
	deps Deps
}

// NewRouter builds the full HTTP handler.
func NewRouter(deps Deps) http.Handler {
	if deps.Rows == nil {
		panic("row source cannot be nil")
	}
	if deps.AuthEnabled && (deps.Authenticator == nil || deps.Sessions == nil) {
		panic("auth enabled without authenticator and session store")
	}
	if deps.DateColumn == "" {
		deps.DateColumn = DefaultDateColumn
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps}

	r := mux.NewRouter()
	r.Use(metrics.Middleware, recoverMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.Handle("/tiktok", s.requireSession(http.HandlerFunc(s.handleList))).Methods(http.MethodGet)
	api.Handle("/tiktok/export", s.requireSession(http.HandlerFunc(s.handleExport))).Methods(http.MethodGet)
	api.Handle("/admin/cache/invalidate", s.requireSession(http.HandlerFunc(s.handleInvalidate))).Methods(http.MethodPost)

	if deps.AuthEnabled {
		signin := http.Handler(http.HandlerFunc(s.handleSignin))
		if deps.IPLimiter != nil {
			signin = deps.IPLimiter.Middleware(http.HandlerFunc(tooManyAttempts))(signin)
		}
		api.Handle("/auth/signin", signin).Methods(http.MethodPost)
		api.HandleFunc("/auth/signout", s.handleSignout).Methods(http.MethodPost)
		api.Handle("/auth/session", s.requireSession(http.HandlerFunc(s.handleSession))).Methods(http.MethodGet)
	}

	return logging.HTTPMiddleware(deps.Logger)(r)
}
