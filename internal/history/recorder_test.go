package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"gemini-bot/internal/apperr"
	"gemini-bot/internal/models"
	"gemini-bot/internal/storage"
	"gemini-bot/internal/storage/storagetest"
)

func TestRecordChatKeepsInsertionOrder(t *testing.T) {
	store, _ := storagetest.SQLite(t)
	frozen := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(store).WithClock(func() time.Time { return frozen })
	ctx := context.Background()

	if err := rec.RecordChat(ctx, 42, "hello", "hi there"); err != nil {
		t.Fatalf("record 1: %v", err)
	}
	if err := rec.RecordChat(ctx, 42, "and again", "sure"); err != nil {
		t.Fatalf("record 2: %v", err)
	}

	got, err := rec.Chats(ctx, 42, 0)
	if err != nil {
		t.Fatalf("chats: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 records, got %d", len(got))
	}
	if got[0].UserMessage != "hello" || got[1].UserMessage != "and again" {
		t.Fatalf("unexpected order %+v", got)
	}
	if !got[1].Timestamp.After(got[0].Timestamp) {
		t.Fatalf("timestamps must increase: %s then %s", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestRecordFile(t *testing.T) {
	store, _ := storagetest.SQLite(t)
	rec := NewRecorder(store)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	if err := rec.RecordFile(ctx, 9, "BQAD", "report.pdf", "application/pdf", "📄 File received. No analysis available."); err != nil {
		t.Fatalf("record file: %v", err)
	}
	files, err := rec.Files(ctx, 9, 0)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("want 1 file, got %d", len(files))
	}
	f := files[0]
	if f.FileName != "report.pdf" || f.MimeType != "application/pdf" {
		t.Fatalf("unexpected record %+v", f)
	}
	if f.Timestamp.Before(before) {
		t.Fatalf("timestamp should come from the recorder clock, got %s", f.Timestamp)
	}
}

type failingStore struct {
	storage.Store
	err error
}

func (f failingStore) AppendChat(context.Context, *models.ChatRecord) error { return f.err }

func TestRecordChatPropagatesStorageError(t *testing.T) {
	cause := apperr.Storage("append chat", errors.New("disk full"))
	rec := NewRecorder(failingStore{err: cause})

	err := rec.RecordChat(context.Background(), 1, "a", "b")
	var se *apperr.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("want *StorageError, got %v", err)
	}
}

func TestStampIsStrictlyMonotonic(t *testing.T) {
	frozen := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := NewRecorder(nil).WithClock(func() time.Time { return frozen })

	prev := rec.stamp()
	for i := 0; i < 5; i++ {
		next := rec.stamp()
		if !next.After(prev) {
			t.Fatalf("stamp %d not after previous: %s <= %s", i, next, prev)
		}
		prev = next
	}
}
