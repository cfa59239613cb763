// Package worker runs the periodic stats report.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/redis/go-redis/v9"

	"gemini-bot/internal/logger"
	"gemini-bot/internal/models"
)

const reportTopUsers = 5

type Snapshotter interface {
	Snapshot(ctx context.Context, limit int) (models.DashboardStats, error)
}

// Sender is satisfied by *telego.Bot.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

type Reporter struct {
	Stats   Snapshotter
	Redis   *redis.Client
	Bot     Sender
	AdminID int64
	Every   time.Duration

	log *logger.Logger
	now func() time.Time
}

func NewReporter(stats Snapshotter, rdb *redis.Client, bot Sender, adminID int64, every time.Duration, log *logger.Logger) *Reporter {
	if log == nil {
		log = logger.Nop()
	}
	if every <= 0 {
		every = time.Hour
	}
	return &Reporter{
		Stats:   stats,
		Redis:   rdb,
		Bot:     bot,
		AdminID: adminID,
		Every:   every,
		log:     log,
		now:     time.Now,
	}
}

// Run reports once at start and then on every tick until ctx is done.
func (r *Reporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Every)
	defer ticker.Stop()
	r.log.Info("stats reporter started", "every", r.Every)

	r.report(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

// claim takes the lock for the current slot so that one replica reports it.
func (r *Reporter) claim(ctx context.Context) bool {
	if r.Redis == nil {
		return true
	}
	slot := r.now().Truncate(r.Every).Unix()
	ok, err := r.Redis.SetNX(ctx, fmt.Sprintf("report:%d", slot), 1, r.Every).Result()
	if err != nil {
		r.log.Warn("report lock unavailable", "slot", slot, "error", err)
		return true
	}
	return ok
}

func (r *Reporter) report(ctx context.Context) {
	if !r.claim(ctx) {
		r.log.Debug("report slot already taken")
		return
	}

	stats, err := r.Stats.Snapshot(ctx, reportTopUsers)
	if err != nil {
		r.log.Error("stats snapshot failed", "error", err)
		return
	}
	r.log.Info("stats snapshot",
		"total_users", stats.TotalUsers,
		"active_users", stats.ActiveUsers,
		"total_messages", stats.TotalMessages,
	)

	if r.AdminID == 0 || r.Bot == nil {
		return
	}
	if _, err := r.Bot.SendMessage(ctx, tu.Message(tu.ID(r.AdminID), FormatReport(stats))); err != nil {
		r.log.Error("failed to send stats report", "admin_chat_id", r.AdminID, "error", err)
	}
}

// FormatReport renders stats as plain text.
func FormatReport(stats models.DashboardStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Bot stats\n\n👥 Users: %d\n🟢 Active users: %d\n💬 Messages: %d\n",
		stats.TotalUsers, stats.ActiveUsers, stats.TotalMessages)
	if len(stats.TopUsers) == 0 {
		return b.String()
	}
	b.WriteString("\n🏆 Top referrers:\n")
	for i, u := range stats.TopUsers {
		name := u.FirstName
		if u.Username != "" {
			name = "@" + u.Username
		}
		fmt.Fprintf(&b, "%d. %s (%d): %d\n", i+1, name, u.ChatID, u.ReferralCount)
	}
	return b.String()
}
