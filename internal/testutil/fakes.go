package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redigma/partner-dashboard/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

// MemorySessions is an in-memory auth.SessionStore.
type MemorySessions struct {
	TTL time.Duration

	mu       sync.Mutex
	sessions map[string]*auth.Session
}

// NewMemorySessions creates an empty store.
func NewMemorySessions() *MemorySessions {
	return &MemorySessions{
		TTL:      time.Hour,
		sessions: make(map[string]*auth.Session),
	}
}

// Create stores a new session.
func (m *MemorySessions) Create(ctx context.Context, id auth.Identity) (*auth.Session, error) {
	now := time.Now()
	sess := &auth.Session{
		ID:        uuid.NewString(),
		Email:     id.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(m.TTL),
	}
	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()
	return sess, nil
}

// Get returns a stored, unexpired session.
func (m *MemorySessions) Get(ctx context.Context, sessionID string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok || !time.Now().Before(sess.ExpiresAt) {
		return nil, auth.ErrSessionNotFound
	}
	copied := *sess
	return &copied, nil
}

// Delete removes a session.
func (m *MemorySessions) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StaticCredentials is an auth.CredentialStore over a fixed account map.
type StaticCredentials map[string]*auth.Credential

// NewStaticCredentials hashes each email/password pair at minimum cost.
func NewStaticCredentials(t testing.TB, pairs ...string) StaticCredentials {
	t.Helper()
	if len(pairs)%2 != 0 {
		t.Fatal("NewStaticCredentials needs email/password pairs")
	}
	creds := StaticCredentials{}
	for i := 0; i < len(pairs); i += 2 {
		hash, err := bcrypt.GenerateFromPassword([]byte(pairs[i+1]), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		creds[pairs[i]] = &auth.Credential{Email: pairs[i], PasswordHash: string(hash)}
	}
	return creds
}

// Lookup returns the account for email, or nil.
func (s StaticCredentials) Lookup(ctx context.Context, email string) (*auth.Credential, error) {
	return s[email], nil
}
