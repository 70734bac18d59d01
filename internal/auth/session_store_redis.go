package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisSessionPrefix = "taskboard:session:"

// RedisClient is the subset of the go-redis client used by RedisSessionStore.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSessionStore keeps each session under its own key and lets Redis expire
// it at the session's ExpiresAt.
type RedisSessionStore struct {
	client  RedisClient
	nowFunc func() time.Time
}

func NewRedisSessionStore(client RedisClient) (*RedisSessionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RedisSessionStore{client: client, nowFunc: time.Now}, nil
}

func (s *RedisSessionStore) key(token string) string {
	return redisSessionPrefix + token
}

func (s *RedisSessionStore) Get(ctx context.Context, token string) (Session, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("redis get session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session Session) error {
	ttl := session.ExpiresAt.Sub(s.nowFunc())
	if ttl <= 0 {
		return nil
	}
	b, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.Token), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
