package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gemini-bot/internal/apperr"
	"gemini-bot/internal/database"
	"gemini-bot/internal/models"
)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Migrate(ctx context.Context) error {
	return apperr.Storage("migrate", database.AutoMigrate(s.db.WithContext(ctx)))
}

func (s *GormStore) RegisterUser(ctx context.Context, chatID int64, firstName, username string) (bool, error) {
	return s.CreateUser(ctx, models.NewUser(chatID, firstName, username))
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) (bool, error) {
	prepareUser(user)

	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(user)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		if user.ReferredBy == nil {
			return nil
		}
		// Single UPDATE, no read-modify-write.
		return tx.Model(&models.User{}).
			Where("chat_id = ?", *user.ReferredBy).
			UpdateColumn("referral_count", gorm.Expr("referral_count + ?", 1)).Error
	})
	if err != nil {
		return false, apperr.Storage("create user", err)
	}
	return created, nil
}

func (s *GormStore) SetPhoneNumber(ctx context.Context, chatID int64, phone string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("chat_id = ?", chatID).
		UpdateColumn("phone_number", phone)
	if res.Error != nil {
		return apperr.Storage("set phone number", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, chatID int64) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&u).Error; err != nil {
		return nil, notFound("get user", err)
	}
	return &u, nil
}

func (s *GormStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&u).Error; err != nil {
		return nil, notFound("find by referral code", err)
	}
	return &u, nil
}

func (s *GormStore) AppendChat(ctx context.Context, record *models.ChatRecord) error {
	return apperr.Storage("append chat", s.db.WithContext(ctx).Create(record).Error)
}

func (s *GormStore) AppendFile(ctx context.Context, record *models.FileRecord) error {
	return apperr.Storage("append file", s.db.WithContext(ctx).Create(record).Error)
}

func (s *GormStore) ChatHistory(ctx context.Context, chatID int64, limit int) ([]models.ChatRecord, error) {
	var out []models.ChatRecord
	q := s.db.WithContext(ctx).Where("user_id = ?", chatID).Order("timestamp ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Storage("chat history", err)
	}
	return out, nil
}

func (s *GormStore) FileHistory(ctx context.Context, chatID int64, limit int) ([]models.FileRecord, error) {
	var out []models.FileRecord
	q := s.db.WithContext(ctx).Where("user_id = ?", chatID).Order("timestamp ASC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Storage("file history", err)
	}
	return out, nil
}

func (s *GormStore) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, apperr.Storage("count users", err)
}

func (s *GormStore) CountActiveUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("last_active IS NOT NULL").Count(&n).Error
	return n, apperr.Storage("count active users", err)
}

func (s *GormStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ChatRecord{}).Count(&n).Error
	return n, apperr.Storage("count messages", err)
}

func (s *GormStore) TopReferrers(ctx context.Context, limit int) ([]models.User, error) {
	var out []models.User
	err := s.db.WithContext(ctx).
		Order("referral_count DESC").
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, apperr.Storage("top referrers", err)
	}
	return out, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	return apperr.Storage(op, err)
}
