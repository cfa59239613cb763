package database

import (
	"context"
	"fmt"
	"time"

	"gemini-bot/internal/config"
	"gemini-bot/internal/logger"

	"github.com/redis/go-redis/v9"
)

func ConnectRedis(cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Connected to Redis", "addr", rdb.Options().Addr)
	return rdb, nil
}
