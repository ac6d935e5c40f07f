package database

import (
	"context"
	"fmt"
	"time"

	"edubot/internal/config"
	"edubot/pkg/log"

	"github.com/go-redis/redis/v8"
)

// OpenRedis connects to redis. It returns a nil client when no address is configured,
// which callers treat as "caching disabled".
func OpenRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Addr == "" {
		log.Info("Redis address not configured, caching disabled")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info("Redis client connected successfully")
	return rdb, nil
}
