// Package domain defines domain-level errors for the forum store.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors for forum store operations.
// Expected conditions are returned as these sentinels and checked with errors.Is.
var (
	// ErrNotFound indicates that no record matched the given id, username, email or name.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey indicates a username or email collision on create or update.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrCapacityExceeded indicates that a meet has no free seat left.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidToken covers unknown, expired and consumed reset tokens alike.
	// Callers must not be able to tell these cases apart.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrBackendUnavailable wraps storage I/O failures.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrNotInitialized is returned for mutations before the store was initialized
	// when lazy initialization is disabled.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrInvalidArgument indicates a malformed input such as an empty username.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrPostLocked is returned when replying to a locked post.
	ErrPostLocked = errors.New("post is locked")

	// ErrRateLimited is returned when reset tokens are requested too often for one user.
	ErrRateLimited = errors.New("too many requests")

	// ErrInvalidCredentials indicates a failed login. It does not reveal whether the
	// user exists.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrNotAttending is returned when cancelling an RSVP the user never made.
	ErrNotAttending = fmt.Errorf("user is not attending: %w", ErrNotFound)
)
