package syncclient

import "errors"

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTooManyConflicts means every attempt of a round hit a push conflict.
	ErrTooManyConflicts = errors.New("sync gave up after repeated conflicts")
)
