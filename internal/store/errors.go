package store

import (
	"errors"
	"fmt"

	"fjacquet/teamkasse/internal/models"
)

// Sentinel errors returned by every backend.
var (
	ErrNotFound       = errors.New("store: not found")
	ErrMemberNotFound = errors.New("store: member not found")
	ErrEntryNotFound  = errors.New("store: entry not found")
	ErrDueNotFound    = errors.New("store: due not found")
	ErrConflict       = errors.New("store: concurrent modification")
	ErrBatchTooLarge  = errors.New("store: batch size limit exceeded")
	ErrClosed         = errors.New("store: closed")
	ErrUnavailable    = errors.New("store: unavailable")
)

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrEntryNotFound) ||
		errors.Is(err, ErrDueNotFound)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUnavailable)
}

// EntryNotFound wraps ErrEntryNotFound with the missing key.
func EntryNotFound(key models.EntryKey) error {
	return fmt.Errorf("%w: %s", ErrEntryNotFound, key)
}

// MemberNotFound wraps ErrMemberNotFound with the missing id.
func MemberNotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrMemberNotFound, id)
}
