package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"finitefield.org/signin/internal/session"
)

// Redis keeps items in Redis under "<prefix>:<scope>:<key>" with a fixed TTL.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis builds a Redis-backed provider. A non-positive ttl stores items without expiry.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if client == nil {
		panic("redis client is required")
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "signin"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// For implements Provider, scoping by session id.
func (r *Redis) For(sess *session.Session) Store {
	return r.Scope(sess.ID())
}

// Scope returns the Store for one scope.
func (r *Redis) Scope(scope string) Store {
	return &redisStore{parent: r, scope: scope}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

type redisStore struct {
	parent *Redis
	scope  string
}

func (s *redisStore) key(key string) string {
	return s.parent.prefix + ":" + s.scope + ":" + key
}

func (s *redisStore) SetItem(ctx context.Context, key, value string) error {
	if s.scope == "" {
		return errors.New("tokenstore: empty scope")
	}
	ttl := s.parent.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.parent.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *redisStore) GetItem(ctx context.Context, key string) (string, error) {
	if s.scope == "" {
		return "", ErrNotFound
	}
	v, err := s.parent.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *redisStore) RemoveItem(ctx context.Context, key string) error {
	if s.scope == "" {
		return nil
	}
	if err := s.parent.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
