// Package history appends chat and file records. Timestamps are assigned
// here, never taken from the caller.
package history

import (
	"context"
	"sync"
	"time"

	"gemini-bot/internal/models"
	"gemini-bot/internal/storage"
)

type Recorder struct {
	store storage.Store
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

func NewRecorder(store storage.Store) *Recorder {
	return &Recorder{
		store: store,
		now:   time.Now,
	}
}

// WithClock swaps the time source. Tests only.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// stamp returns a UTC timestamp strictly after the previous one.
func (r *Recorder) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now().UTC().Truncate(time.Microsecond)
	if !ts.After(r.last) {
		ts = r.last.Add(time.Microsecond)
	}
	r.last = ts
	return ts
}

func (r *Recorder) RecordChat(ctx context.Context, chatID int64, inbound, outbound string) error {
	return r.store.AppendChat(ctx, &models.ChatRecord{
		UserID:      chatID,
		UserMessage: inbound,
		BotResponse: outbound,
		Timestamp:   r.stamp(),
	})
}

func (r *Recorder) RecordFile(ctx context.Context, chatID int64, fileID, fileName, mimeType, description string) error {
	return r.store.AppendFile(ctx, &models.FileRecord{
		UserID:      chatID,
		FileID:      fileID,
		FileName:    fileName,
		MimeType:    mimeType,
		Description: description,
		Timestamp:   r.stamp(),
	})
}

func (r *Recorder) Chats(ctx context.Context, chatID int64, limit int) ([]models.ChatRecord, error) {
	return r.store.ChatHistory(ctx, chatID, limit)
}

func (r *Recorder) Files(ctx context.Context, chatID int64, limit int) ([]models.FileRecord, error) {
	return r.store.FileHistory(ctx, chatID, limit)
}
