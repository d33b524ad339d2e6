package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"apparel/storefront/internal/domain"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// SessionStore persists the signed-in user record between runs.
type SessionStore interface {
	Load(ctx context.Context) (*domain.User, error)
	Save(ctx context.Context, user domain.User) error
	Clear(ctx context.Context) error
}

type redisSessionStore struct {
	redisClient *redis.Client
	key         string
	ttl         time.Duration
}

// NewRedisSessionStore keeps the record under key. A zero ttl keeps it until Clear.
func NewRedisSessionStore(redisClient *redis.Client, key string, ttl time.Duration) SessionStore {
	return &redisSessionStore{
		redisClient: redisClient,
		key:         key,
		ttl:         ttl,
	}
}

// Load returns the stored user, or nil when nobody is signed in. A record
// that does not decode is treated as signed out.
func (s *redisSessionStore) Load(ctx context.Context) (*domain.User, error) {
	val, err := s.redisClient.Get(ctx, s.key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // No session saved yet
		}
		return nil, fmt.Errorf("failed to load session record %s: %w", s.key, err)
	}

	var user domain.User
	if err := json.Unmarshal([]byte(val), &user); err != nil {
		log.Warnf("Ignoring unreadable session record %s: %v", s.key, err)
		return nil, nil
	}

	return &user, nil
}

func (s *redisSessionStore) Save(ctx context.Context, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}

	if err := s.redisClient.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session record %s: %w", s.key, err)
	}
	return nil
}

func (s *redisSessionStore) Clear(ctx context.Context) error {
	if err := s.redisClient.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear session record %s: %w", s.key, err)
	}
	return nil
}
