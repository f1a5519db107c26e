package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisKeySessionPrefix prefixes stored sessions.
const RedisKeySessionPrefix = "dashboard:session:"

// DefaultSessionTTL matches a 30-day browser session.
const DefaultSessionTTL = 30 * 24 * time.Hour

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

// Session is a signed-in browser session.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity returns the principal the session belongs to.
func (s *Session) Identity() Identity {
	return Identity{ID: s.Email, Email: s.Email}
}

// SessionStore persists sessions.
type SessionStore interface {
	Create(ctx context.Context, id Identity) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessionStore keeps sessions in Redis with a TTL.
type RedisSessionStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(redisClient *redis.Client, ttl time.Duration) *RedisSessionStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the session lifetime.
func (s *RedisSessionStore) TTL() time.Duration {
	return s.ttl
}

func sessionKey(id string) string {
	return RedisKeySessionPrefix + id
}

// Create starts a new session for id.
func (s *RedisSessionStore) Create(ctx context.Context, id Identity) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Email:     id.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get loads a session. Unknown and expired sessions yield ErrSessionNotFound.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrSessionNotFound
	}

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
