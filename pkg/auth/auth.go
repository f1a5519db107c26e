// Package auth verifies partner credentials and manages sign-in sessions.
//
// Unknown accounts, wrong passwords, and credential store failures all
// produce ErrAuthenticationFailed so callers cannot tell them apart.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redigma/partner-dashboard/pkg/logging"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// ErrAuthenticationFailed is the single failure outcome of Authenticate.
var ErrAuthenticationFailed = errors.New("authentication failed")

var signinTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dashboard_signin_total",
	Help: "Total sign-in attempts by outcome",
}, []string{"outcome"}) // "success", "unknown_user", "bad_password", "store_error", "invalid_input"

// Credential is a stored account record.
type Credential struct {
	Email        string
	PasswordHash string
}

// CredentialStore looks up accounts by exact email.
// Lookup returns nil, nil when no account matches.
type CredentialStore interface {
	Lookup(ctx context.Context, email string) (*Credential, error)
}

// Identity is the authenticated principal.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Authenticator checks email/password pairs against a CredentialStore.
type Authenticator struct {
	store  CredentialStore
	logger zerolog.Logger
}

// NewAuthenticator creates an authenticator backed by store.
func NewAuthenticator(store CredentialStore) *Authenticator {
	if store == nil {
		panic("credential store cannot be nil")
	}
	return &Authenticator{
		store:  store,
		logger: logging.NewLogger(logging.ComponentAuth),
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// timingHash returns a hash compared against when the account is unknown,
// so unknown and existing accounts take the same time to reject.
func timingHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("partner-dashboard"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// Authenticate returns the identity for a valid email/password pair.
// Every failure is reported as ErrAuthenticationFailed.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		signinTotal.WithLabelValues("invalid_input").Inc()
		return nil, ErrAuthenticationFailed
	}

	cred, err := a.store.Lookup(ctx, email)
	if err != nil {
		a.logger.Error().Err(err).Msg("Credential lookup failed")
		signinTotal.WithLabelValues("store_error").Inc()
		return nil, ErrAuthenticationFailed
	}

	if cred == nil {
		_ = bcrypt.CompareHashAndPassword(timingHash(), []byte(password))
		a.logger.Info().Str("email", email).Msg("Sign-in rejected")
		signinTotal.WithLabelValues("unknown_user").Inc()
		return nil, ErrAuthenticationFailed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		a.logger.Info().Str("email", email).Msg("Sign-in rejected")
		signinTotal.WithLabelValues("bad_password").Inc()
		return nil, ErrAuthenticationFailed
	}

	signinTotal.WithLabelValues("success").Inc()
	a.logger.Info().Str("email", cred.Email).Msg("Sign-in succeeded")

	return &Identity{ID: cred.Email, Email: cred.Email}, nil
}
