package prefs

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisPrefix = "authsession:"

// RedisStore keeps markers under "<prefix>onboarding:<email>".
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = prefix }
}

// WithTTL expires markers after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, prefix: DefaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(email string) (string, error) {
	norm, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	return s.prefix + "onboarding:" + norm, nil
}

func (s *RedisStore) MarkOnboarded(ctx context.Context, email string) error {
	key, err := s.key(email)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
}

func (s *RedisStore) Onboarded(ctx context.Context, email string) (bool, error) {
	key, err := s.key(email)
	if err != nil {
		return false, err
	}
	err = s.client.Get(ctx, key).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

func (s *RedisStore) ClearOnboarding(ctx context.Context, email string) error {
	key, err := s.key(email)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, key).Err()
}
