package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout  = 3 * time.Second
	redisReadTimeout  = 2 * time.Second
	redisWriteTimeout = 2 * time.Second
	redisPingTimeout  = 2 * time.Second

	fieldAccess  = "access"
	fieldRefresh = "refresh"
)

// NewRedisClient parses redisURL, tunes the pool for a single client process
// and pings the server once.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	options.PoolSize = 4
	options.MinIdleConns = 1
	options.DialTimeout = redisDialTimeout
	options.ReadTimeout = redisReadTimeout
	options.WriteTimeout = redisWriteTimeout

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// RedisStore keeps the pair in one hash. Replacing the pair is a DEL+HSET
// transaction, so readers see either the old pair or the new one.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore stores the pair under "facegate:session:<profile>".
func NewRedisStore(client *redis.Client, profile string) *RedisStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisStore{client: client, key: "facegate:session:" + profile}
}

func (s *RedisStore) Set(ctx context.Context, tokens models.Tokens) error {
	if err := validate(tokens); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		values := []any{fieldAccess, tokens.Access}
		if tokens.Refresh != "" {
			values = append(values, fieldRefresh, tokens.Refresh)
		}
		pipe.HSet(ctx, s.key, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis token set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context) (models.Tokens, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.Tokens{}, fmt.Errorf("redis token get: %w", err)
	}
	return models.Tokens{Access: values[fieldAccess], Refresh: values[fieldRefresh]}, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis token clear: %w", err)
	}
	return nil
}

func (s *RedisStore) HasAccess(ctx context.Context) bool {
	tokens, err := s.Get(ctx)
	return err == nil && tokens.Access != ""
}
