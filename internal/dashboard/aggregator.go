// Package dashboard provides read-only rollups over users and chat history.
package dashboard

import (
	"context"

	"gemini-bot/internal/models"
)

const DefaultTopLimit = 5

// Source is the read side of storage.Store the aggregator needs.
type Source interface {
	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsers(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	TopReferrers(ctx context.Context, limit int) ([]models.User, error)
}

type Aggregator struct {
	src Source
}

func NewAggregator(src Source) *Aggregator {
	return &Aggregator{src: src}
}

func (a *Aggregator) CountUsers(ctx context.Context) (int64, error) {
	return a.src.CountUsers(ctx)
}

// CountActiveUsers counts users carrying a last_active marker. Nothing in
// the bot writes that marker yet, so this is zero in practice.
func (a *Aggregator) CountActiveUsers(ctx context.Context) (int64, error) {
	return a.src.CountActiveUsers(ctx)
}

func (a *Aggregator) CountMessages(ctx context.Context) (int64, error) {
	return a.src.CountMessages(ctx)
}

// TopReferrers returns at most limit users by referral count, ties in
// insertion order. limit <= 0 falls back to DefaultTopLimit.
func (a *Aggregator) TopReferrers(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	return a.src.TopReferrers(ctx, limit)
}

func (a *Aggregator) Snapshot(ctx context.Context, limit int) (models.DashboardStats, error) {
	var (
		stats models.DashboardStats
		err   error
	)
	if stats.TotalUsers, err = a.CountUsers(ctx); err != nil {
		return models.DashboardStats{}, err
	}
	if stats.ActiveUsers, err = a.CountActiveUsers(ctx); err != nil {
		return models.DashboardStats{}, err
	}
	if stats.TotalMessages, err = a.CountMessages(ctx); err != nil {
		return models.DashboardStats{}, err
	}
	if stats.TopUsers, err = a.TopReferrers(ctx, limit); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
