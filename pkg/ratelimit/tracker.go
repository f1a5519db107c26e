package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for sign-in throttling.
var (
	signinFailuresRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_signin_failures_recorded_total",
		Help: "Total number of failed sign-ins recorded against accounts",
	})

	signinLockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_signin_lockouts_total",
		Help: "Total number of accounts locked after repeated failures",
	})

	signinBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_signin_blocks_total",
		Help: "Total number of sign-in attempts refused by throttling",
	}, []string{"gate"}) // "account", "ip"
)

// Tracker counts failed sign-ins per account in Redis.
type Tracker struct {
	redis  *redis.Client
	policy Policy
	logger zerolog.Logger
}

// NewTracker creates a new failed sign-in tracker.
func NewTracker(redisClient *redis.Client, policy Policy, logger zerolog.Logger) *Tracker {
	if policy.MaxFailures <= 0 {
		policy.MaxFailures = DefaultMaxFailures
	}
	if policy.Lockout <= 0 {
		policy.Lockout = DefaultLockout
	}
	return &Tracker{
		redis:  redisClient,
		policy: policy,
		logger: logger,
	}
}

// Policy returns the effective policy.
func (t *Tracker) Policy() Policy {
	return t.policy
}

// GetState retrieves the failure state of an account.
// An account with no recorded failures has a zero state.
func (t *Tracker) GetState(ctx context.Context, email string) (*AttemptState, error) {
	key := failuresKey(email)

	pipe := t.redis.Pipeline()
	countCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get sign-in failures: %w", err)
	}

	state := &AttemptState{MaxFailures: t.policy.MaxFailures}

	count, err := countCmd.Int()
	if errors.Is(err, redis.Nil) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse sign-in failures: %w", err)
	}
	state.Failures = count

	if ttl := ttlCmd.Val(); ttl > 0 {
		state.ResetAt = time.Now().Add(ttl)
	}
	return state, nil
}

// RecordFailure increments the failure counter of an account.
// The counter expires Lockout after the first failure, and the expiry is
// pushed out again when the account becomes locked.
func (t *Tracker) RecordFailure(ctx context.Context, email string) (*AttemptState, error) {
	key := failuresKey(email)

	count, err := t.redis.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("record sign-in failure: %w", err)
	}
	signinFailuresRecorded.Inc()

	if count == 1 || count == int64(t.policy.MaxFailures) {
		if err := t.redis.Expire(ctx, key, t.policy.Lockout).Err(); err != nil {
			return nil, fmt.Errorf("set sign-in failure expiry: %w", err)
		}
	}

	state := &AttemptState{
		Failures:    int(count),
		MaxFailures: t.policy.MaxFailures,
		ResetAt:     time.Now().Add(t.policy.Lockout),
	}

	if count == int64(t.policy.MaxFailures) {
		signinLockoutsTotal.Inc()
		t.logger.Warn().
			Str("email", email).
			Int("failures", state.Failures).
			Dur("lockout", t.policy.Lockout).
			Msg("Account locked after repeated sign-in failures")
	} else {
		t.logger.Debug().
			Str("email", email).
			Int("failures", state.Failures).
			Int("remaining", state.Remaining()).
			Msg("Sign-in failure recorded")
	}

	return state, nil
}

// Reset clears the failure counter of an account, typically after a
// successful sign-in.
func (t *Tracker) Reset(ctx context.Context, email string) error {
	if err := t.redis.Del(ctx, failuresKey(email)).Err(); err != nil {
		return fmt.Errorf("reset sign-in failures: %w", err)
	}
	return nil
}

// ShouldAllow reports whether a sign-in attempt for the account may proceed.
func (t *Tracker) ShouldAllow(ctx context.Context, email string) (bool, error) {
	state, err := t.GetState(ctx, email)
	if err != nil {
		return false, fmt.Errorf("get sign-in state: %w", err)
	}

	if state.IsLocked() {
		t.logger.Warn().
			Str("email", email).
			Int("failures", state.Failures).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Account locked - refusing sign-in")

		signinBlocksTotal.WithLabelValues("account").Inc()
		return false, nil
	}

	return true, nil
}
