package userstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long an idle conversation is remembered.
const DefaultTTL = 5 * 24 * time.Hour

const defaultTimeout = 3 * time.Second

// RedisStore keeps user state in Redis with a fixed TTL.
type RedisStore struct {
	client  redis.UniversalClient
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisStore builds a Redis-backed store. Zero durations fall back to defaults.
func NewRedisStore(client redis.UniversalClient, ttl, timeout time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RedisStore{client: client, ttl: ttl, timeout: timeout}
}

// Load returns the stored state, or an empty one.
func (s *RedisStore) Load(ctx context.Context, userID string) funnel.State {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return funnel.State{}
	}
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("load user state")
		return funnel.State{}
	}
	st, err := decode(raw)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("discarding unreadable user state")
		return funnel.State{}
	}
	return st
}

// Save overwrites the user's state and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, userID string, st funnel.State) error {
	raw, err := encode(st)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(ctx, Key(userID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save user state %s: %w", userID, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Ping(ctx).Err()
}
