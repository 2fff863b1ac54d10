package service

import "errors"

var (
	// ErrInvalidInterval is returned for an interval label that is not registered
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrRoundNotFound is returned when a round id does not exist
	ErrRoundNotFound = errors.New("round not found")

	// ErrConcurrentUpdate is returned when another instance won a race on the same rows.
	// The work is safe to retry on the next tick.
	ErrConcurrentUpdate = errors.New("concurrent update")

	// ErrUserNotFound is returned when a user id does not exist
	ErrUserNotFound = errors.New("user not found")
)
