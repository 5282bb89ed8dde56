package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrUnauthenticated is returned when a session token is missing,
// expired or unknown.
var ErrUnauthenticated = errors.New("unauthenticated")

// SessionStore maps opaque session tokens to user ids in redis.
// Tokens expire after the configured TTL.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore creates a redis-backed session store
func NewSessionStore(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Create opens a session for userID and returns its token.
func (s *SessionStore) Create(ctx context.Context, userID int) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, sessionKey(token), userID, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return token, nil
}

// UserID resolves a session token to the authenticated user id.
func (s *SessionStore) UserID(ctx context.Context, token string) (int, error) {
	if token == "" {
		return 0, ErrUnauthenticated
	}

	val, err := s.rdb.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrUnauthenticated
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session: %w", err)
	}

	userID, err := strconv.Atoi(val)
	if err != nil {
		return 0, ErrUnauthenticated
	}
	return userID, nil
}

// Destroy removes a session. Destroying an unknown token is a no-op.
func (s *SessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
