package upstream

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no upstream URL is configured.
// No request is attempted in that case.
var ErrNotConfigured = errors.New("GOOGLE_APPS_SCRIPT_URL not configured")

// ErrorKind classifies upstream failures.
type ErrorKind string

const (
	// KindTransport covers network failures and non-2xx HTTP statuses.
	KindTransport ErrorKind = "transport"

	// KindUpstream is an explicit error field in an otherwise valid payload.
	KindUpstream ErrorKind = "upstream"

	// KindDecode is a body that is not the expected JSON envelope.
	KindDecode ErrorKind = "decode"
)

// Error is a failed fetch from the Apps Script endpoint.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
// Upstream-reported errors surface their message verbatim.
func (e *Error) Error() string {
	switch e.Kind {
	case KindUpstream:
		return e.Message
	case KindTransport:
		if e.StatusCode > 0 {
			return fmt.Sprintf("Apps Script error: %s", e.Message)
		}
		return fmt.Sprintf("Apps Script request failed: %v", e.Err)
	default:
		if e.Err != nil {
			return fmt.Sprintf("Apps Script %s error: %s: %v", e.Kind, e.Message, e.Err)
		}
		return fmt.Sprintf("Apps Script %s error: %s", e.Kind, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}
