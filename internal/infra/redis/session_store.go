package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prediction-pool/internal/app"

	"github.com/redis/go-redis/v9"
)

// SessionStore keeps capability grants in Redis so every instance behind the load
// balancer sees the same session state. Grants expire with the session TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Grant(ctx context.Context, sessionID string, eventID int64, capability app.Capability) error {
	if err := s.client.Set(ctx, s.key(sessionID, eventID, capability), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("grant %s: %w", capability, err)
	}
	return nil
}

func (s *SessionStore) Has(ctx context.Context, sessionID string, eventID int64, capability app.Capability) (bool, error) {
	err := s.client.Get(ctx, s.key(sessionID, eventID, capability)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s: %w", capability, err)
	}
	return true, nil
}

func (s *SessionStore) key(sessionID string, eventID int64, capability app.Capability) string {
	return fmt.Sprintf("pool:session:%s:event:%d:%s", sessionID, eventID, capability)
}
