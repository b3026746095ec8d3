package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrConflict             = errors.New("selected time is no longer available")
	ErrStorageUnavailable   = errors.New("storage unavailable, please retry")
	ErrRoomNotFound         = errors.New("room not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrBookingPast          = errors.New("past bookings cannot be cancelled")
	ErrConfirmationRequired = errors.New("cancellation must be confirmed")
	ErrDuplicateSubmit      = errors.New("booking was already submitted, please wait")
	ErrUnauthorized         = errors.New("invalid admin password")
)

// FieldErrors maps a request field name to a human-readable message.
type FieldErrors map[string]string

// ValidationError carries every rejected field of one request.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (f FieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f FieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
