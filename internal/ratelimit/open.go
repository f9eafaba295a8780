package ratelimit

import (
	"context"
	"fmt"
	"time"

	"donodopedaco/internal/config"
	"donodopedaco/internal/db"

	"go.uber.org/zap"
)

// OpenStore builds the store named by RATE_LIMIT_BACKEND. The returned
// func releases its connections.
func OpenStore(ctx context.Context, env config.Env, ttl time.Duration, logger *zap.Logger) (Store, func(), error) {
	switch env.RateLimitBackend {
	case "", "memory":
		return NewInMemoryStore(), func() {}, nil

	case "redis":
		s := NewRedisStore(env.RedisAddr, env.RedisPassword, ttl)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", env.RedisAddr, err)
		}
		return s, func() { _ = s.Close() }, nil

	case "postgres":
		pool, err := db.ConnectPostgres(ctx, env.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresStore(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown rate limit backend %q", env.RateLimitBackend)
}
