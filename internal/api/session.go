package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redigma/partner-dashboard/pkg/auth"
	"github.com/rs/zerolog/hlog"
)

// SessionCookie names the session cookie.
const SessionCookie = "dashboard_session"

// maxSigninBody bounds the sign-in request body.
const maxSigninBody = 1 << 16

type ctxKey struct{}

// SessionFromContext returns the session attached by requireSession.
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*auth.Session)
	return sess, ok
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	User      auth.Identity `json:"user"`
	ExpiresAt *time.Time    `json:"expiresAt,omitempty"`
}

func tooManyAttempts(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "too many sign-in attempts")
}

// requireSession rejects requests without a valid session cookie when auth
// is enabled.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.deps.AuthEnabled {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		sess, err := s.deps.Sessions.Get(r.Context(), cookie.Value)
		if errors.Is(err, auth.ErrSessionNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("Session lookup failed")
			writeError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleSignin serves POST /api/auth/signin.
func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	logger := hlog.FromRequest(r)
	ctx := r.Context()

	var req signinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSigninBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	email := strings.TrimSpace(req.Email)

	if s.deps.Guard != nil && email != "" {
		allowed, err := s.deps.Guard.ShouldAllow(ctx, email)
		if err != nil {
			logger.Warn().Err(err).Msg("Sign-in guard unavailable, continuing without it")
		} else if !allowed {
			tooManyAttempts(w, r)
			return
		}
	}

	id, err := s.deps.Authenticator.Authenticate(ctx, email, req.Password)
	if err != nil {
		if s.deps.Guard != nil && email != "" {
			if _, gerr := s.deps.Guard.RecordFailure(ctx, email); gerr != nil {
				logger.Warn().Err(gerr).Msg("Failed to record sign-in failure")
			}
		}
		writeError(w, http.StatusUnauthorized, auth.ErrAuthenticationFailed.Error())
		return
	}

	if s.deps.Guard != nil {
		if err := s.deps.Guard.Reset(ctx, email); err != nil {
			logger.Warn().Err(err).Msg("Failed to reset sign-in failures")
		}
	}

	sess, err := s.deps.Sessions.Create(ctx, *id)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create session")
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   s.deps.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, userResponse{User: *id})
}

// handleSignout serves POST /api/auth/signout.
func (s *Server) handleSignout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		if err := s.deps.Sessions.Delete(r.Context(), cookie.Value); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("Failed to delete session")
			writeError(w, http.StatusInternalServerError, "failed to delete session")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.deps.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// handleSession serves GET /api/auth/session.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	expires := sess.ExpiresAt
	writeJSON(w, http.StatusOK, userResponse{User: sess.Identity(), ExpiresAt: &expires})
}
