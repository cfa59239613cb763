// Package apperr holds the typed failures shared by the storage layer and the
// external collaborators.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a user or record is absent.
var ErrNotFound = errors.New("not found")

// StorageError wraps a persistence read or write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage returns nil for a nil err, keeps ErrNotFound as is and wraps
// everything else.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// ExternalServiceError is a language-model or search collaborator failure.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func External(service string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalServiceError
	if errors.As(err, &ext) {
		return err
	}
	return &ExternalServiceError{Service: service, Err: err}
}

// ReplyText renders err in the legacy "Error: ..." form. Only the reply
// layer and stored descriptions use it.
func ReplyText(err error) string {
	if err == nil {
		return ""
	}
	var ext *ExternalServiceError
	if errors.As(err, &ext) && ext.Err != nil {
		return "Error: " + ext.Err.Error()
	}
	return "Error: " + err.Error()
}
