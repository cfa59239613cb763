package models

import (
	"strconv"
	"time"
)

type User struct {
	ID            uint       `gorm:"primaryKey" json:"-"`
	ChatID        int64      `gorm:"uniqueIndex;not null" json:"chat_id"`
	FirstName     string     `gorm:"size:255" json:"first_name"`
	Username      string     `gorm:"size:255" json:"username,omitempty"`
	PhoneNumber   *string    `gorm:"size:32" json:"phone_number,omitempty"`
	ReferralCode  string     `gorm:"size:32;uniqueIndex" json:"referral_code"`
	ReferredBy    *int64     `gorm:"index" json:"referred_by,omitempty"`
	ReferralCount int64      `gorm:"not null;default:0" json:"referral_count"`
	LastActive    *time.Time `gorm:"index" json:"last_active,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"-"`
}

// ReferralCodeFor derives the referral code from the chat id.
func ReferralCodeFor(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// NewUser builds an unsaved user with its referral code filled in.
func NewUser(chatID int64, firstName, username string) *User {
	return &User{
		ChatID:       chatID,
		FirstName:    firstName,
		Username:     username,
		ReferralCode: ReferralCodeFor(chatID),
	}
}
