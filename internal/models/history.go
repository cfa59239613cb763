package models

import (
	"time"
)

// ChatRecord is one user message and the bot's answer. Records are
// append-only.
type ChatRecord struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UserID      int64     `gorm:"not null;index:idx_chats_user_ts,priority:1" json:"user_id"`
	UserMessage string    `gorm:"type:text" json:"user_message"`
	BotResponse string    `gorm:"type:text" json:"bot_response"`
	Timestamp   time.Time `gorm:"not null;index:idx_chats_user_ts,priority:2" json:"timestamp"`
}

func (ChatRecord) TableName() string { return "chats" }

type FileRecord struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	UserID      int64     `gorm:"not null;index:idx_files_user_ts,priority:1" json:"user_id"`
	FileID      string    `gorm:"size:255;not null" json:"file_id"`
	FileName    string    `gorm:"size:512" json:"file_name"`
	MimeType    string    `gorm:"size:128" json:"mime_type"`
	Description string    `gorm:"type:text" json:"description"`
	Timestamp   time.Time `gorm:"not null;index:idx_files_user_ts,priority:2" json:"timestamp"`
}

func (FileRecord) TableName() string { return "files" }
