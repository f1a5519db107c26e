package api

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/hlog"
)

// errorResponse is the envelope of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v before writing any header so an encoding failure
// still yields a clean error response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// recoverMiddleware turns a handler panic into a 500 envelope.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hlog.FromRequest(r).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("Recovered handler panic")
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
