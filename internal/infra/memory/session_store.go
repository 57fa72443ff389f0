package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"prediction-pool/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionStore.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu     sync.RWMutex
	grants map[string]time.Time
}

// NewSessionStore keeps grants for ttl; a ttl of 0 keeps them for the process lifetime.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:    ttl,
		clock:  time.Now,
		grants: make(map[string]time.Time),
	}
}

func (s *SessionStore) Grant(_ context.Context, sessionID string, eventID int64, capability app.Capability) error {
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.clock().Add(s.ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[grantKey(sessionID, eventID, capability)] = expiresAt
	return nil
}

func (s *SessionStore) Has(_ context.Context, sessionID string, eventID int64, capability app.Capability) (bool, error) {
	key := grantKey(sessionID, eventID, capability)
	s.mu.RLock()
	expiresAt, ok := s.grants[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if !expiresAt.IsZero() && !expiresAt.After(s.clock()) {
		s.mu.Lock()
		delete(s.grants, key)
		s.mu.Unlock()
		return false, nil
	}
	return true, nil
}

func grantKey(sessionID string, eventID int64, capability app.Capability) string {
	return fmt.Sprintf("%s:%d:%s", sessionID, eventID, capability)
}
