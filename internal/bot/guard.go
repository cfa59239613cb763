package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"gemini-bot/internal/logger"
)

// UpdateGuard drops updates Telegram delivers more than once, for example
// after a restart before the offset was committed. A nil guard or a guard
// without redis lets everything through.
type UpdateGuard struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewUpdateGuard(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *UpdateGuard {
	if log == nil {
		log = logger.Nop()
	}
	return &UpdateGuard{rdb: rdb, ttl: ttl, log: log}
}

// First reports whether updateID is seen for the first time. Redis errors
// fail open.
func (g *UpdateGuard) First(ctx context.Context, updateID int) bool {
	if g == nil || g.rdb == nil {
		return true
	}
	ok, err := g.rdb.SetNX(ctx, fmt.Sprintf("update:%d", updateID), 1, g.ttl).Result()
	if err != nil {
		g.log.Warn("update guard unavailable", "update_id", updateID, "error", err)
		return true
	}
	return ok
}
