// Package common defines shared constants and sentinel errors used across
// client and server layers of FieldSync. Callers should use errors.Is to
// match the sentinel values and errors.As to extract a *ConflictError.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Push item errors. These are non-fatal: the item is skipped and the
	// rest of the batch still applies.
	ErrUnknownParent = errors.New("unknown parent")
	ErrDuplicate     = errors.New("duplicate stable id")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrUnknownTable   = errors.New("unknown table")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ConflictError reports a push that tried to modify a row which changed on
// the server after the client's last pull. It aborts the whole push.
type ConflictError struct {
	Table    string
	StableID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s %s was modified on server after last pull", e.Table, e.StableID)
}

// IsConflict reports whether err wraps a *ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
