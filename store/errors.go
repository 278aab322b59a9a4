package store

import "errors"

var (
	// ErrProfileExists is returned by CreateProfile for a known user.
	ErrProfileExists = errors.New("user profile already exists")

	// ErrProfileNotFound is returned when a user has no profile.
	ErrProfileNotFound = errors.New("user profile not found")

	// ErrInvalidEvent is returned by AddEvent for an event without a name or user.
	ErrInvalidEvent = errors.New("invalid event")
)
