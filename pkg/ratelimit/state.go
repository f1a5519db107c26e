// Package ratelimit throttles sign-in attempts.
//
// Two independent gates are provided: a Redis-backed Tracker that locks an
// account after repeated failed sign-ins, shared across all service
// instances, and an in-process IPLimiter that caps the sign-in request rate
// per client address.
package ratelimit

import (
	"strings"
	"time"
)

// RedisKeyFailuresPrefix prefixes the per-account failure counter.
const RedisKeyFailuresPrefix = "dashboard:signin:failures:"

// Defaults for the failure policy.
const (
	// DefaultMaxFailures locks an account once this many failures accumulate.
	DefaultMaxFailures = 5

	// DefaultLockout is how long the counter lives, and so how long a
	// locked account stays locked.
	DefaultLockout = 15 * time.Minute
)

// Policy configures when an account is locked.
type Policy struct {
	MaxFailures int
	Lockout     time.Duration
}

// DefaultPolicy returns the default failure policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxFailures: DefaultMaxFailures,
		Lockout:     DefaultLockout,
	}
}

// failuresKey returns the Redis key for an account.
// Emails are compared case-insensitively.
func failuresKey(email string) string {
	return RedisKeyFailuresPrefix + strings.ToLower(strings.TrimSpace(email))
}

// AttemptState is the failed sign-in state of a single account.
type AttemptState struct {
	// Failures is the number of failed sign-ins in the current window.
	Failures int `json:"failures"`

	// MaxFailures is the policy limit the state was evaluated against.
	MaxFailures int `json:"max_failures"`

	// ResetAt is when the failure counter expires. Zero when there are no failures.
	ResetAt time.Time `json:"reset_at"`
}

// IsLocked reports whether further sign-ins must be refused.
func (s *AttemptState) IsLocked() bool {
	return s.MaxFailures > 0 && s.Failures >= s.MaxFailures
}

// Remaining returns how many more failures are allowed before locking.
func (s *AttemptState) Remaining() int {
	if s.Failures >= s.MaxFailures {
		return 0
	}
	return s.MaxFailures - s.Failures
}

// TimeUntilReset returns the duration until the counter expires.
// Returns 0 if the reset time has already passed.
func (s *AttemptState) TimeUntilReset() time.Duration {
	if s.ResetAt.IsZero() {
		return 0
	}
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}
