package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStorageKeepsNotFound(t *testing.T) {
	if err := Storage("get user", nil); err != nil {
		t.Fatalf("nil in, nil out; got %v", err)
	}
	wrapped := fmt.Errorf("lookup: %w", ErrNotFound)
	if got := Storage("get user", wrapped); got != wrapped {
		t.Fatalf("not-found should pass through untouched, got %v", got)
	}

	cause := errors.New("connection reset")
	err := Storage("append chat", cause)
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %T", err)
	}
	if se.Op != "append chat" || !errors.Is(err, cause) {
		t.Fatalf("unexpected storage error %+v", se)
	}
}

func TestReplyTextLegacyFormat(t *testing.T) {
	err := External("gemini", errors.New("quota exceeded"))
	if got := ReplyText(err); got != "Error: quota exceeded" {
		t.Fatalf("unexpected reply text %q", got)
	}
	if got := ReplyText(errors.New("boom")); got != "Error: boom" {
		t.Fatalf("unexpected reply text %q", got)
	}
	if got := ReplyText(nil); got != "" {
		t.Fatalf("nil error should render empty, got %q", got)
	}
}

func TestExternalDoesNotDoubleWrap(t *testing.T) {
	first := External("search", errors.New("timeout"))
	second := External("gemini", first)
	var ext *ExternalServiceError
	if !errors.As(second, &ext) || ext.Service != "search" {
		t.Fatalf("expected original service tag, got %v", second)
	}
}
