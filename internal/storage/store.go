// Package storage is the persistence layer for users, chat history and file
// metadata. Two backends implement Store: GormStore (Postgres, SQLite in
// tests) and MongoStore.
package storage

import (
	"context"

	"gemini-bot/internal/models"
)

// Store is safe for concurrent use. Lookups of absent users return
// apperr.ErrNotFound; other failures come back as *apperr.StorageError.
type Store interface {
	Migrate(ctx context.Context) error

	// RegisterUser creates the user if absent and reports whether this call
	// created it. Concurrent calls with the same id create exactly one record.
	RegisterUser(ctx context.Context, chatID int64, firstName, username string) (bool, error)
	// CreateUser is the insert-if-absent primitive. When the user carries
	// ReferredBy and is created, the referrer's count goes up by one in the
	// same atomic step.
	CreateUser(ctx context.Context, user *models.User) (bool, error)
	// SetPhoneNumber updates only the phone field; ErrNotFound if the user
	// is absent.
	SetPhoneNumber(ctx context.Context, chatID int64, phone string) error
	GetUser(ctx context.Context, chatID int64) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)

	AppendChat(ctx context.Context, record *models.ChatRecord) error
	AppendFile(ctx context.Context, record *models.FileRecord) error
	// ChatHistory and FileHistory return records oldest first. limit <= 0
	// means no limit.
	ChatHistory(ctx context.Context, chatID int64, limit int) ([]models.ChatRecord, error)
	FileHistory(ctx context.Context, chatID int64, limit int) ([]models.FileRecord, error)

	CountUsers(ctx context.Context) (int64, error)
	CountActiveUsers(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
	// TopReferrers orders by referral count descending, then by insertion
	// order.
	TopReferrers(ctx context.Context, limit int) ([]models.User, error)
}

// selfReferral reports whether a user points at itself as referrer.
func selfReferral(u *models.User) bool {
	return u.ReferredBy != nil && *u.ReferredBy == u.ChatID
}

func prepareUser(u *models.User) {
	if u.ReferralCode == "" {
		u.ReferralCode = models.ReferralCodeFor(u.ChatID)
	}
	if selfReferral(u) {
		u.ReferredBy = nil
	}
	u.ReferralCount = 0
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MongoStore)(nil)
)
