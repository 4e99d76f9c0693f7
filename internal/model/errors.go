package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrUsernameTaken  = errors.New("username already exists")

	// Snapshot errors
	ErrInvalidSnapshot = errors.New("invalid game state snapshot")

	// Storage errors. ErrStoreUnavailable marks transient backend failures
	// (connection loss, timeouts) and must never be confused with not-found.
	ErrStoreUnavailable = errors.New("storage backend unavailable")
)
