package gamesession

import "errors"

// Store-level failures are normalized into this taxonomy at the repository
// boundary; raw driver errors never reach callers. Guard failures (start
// denied, toggle on a non-waiting game) are boolean results, not errors.
var (
	// ErrNotFound is returned when the referenced game id has no row.
	ErrNotFound = errors.New("game not found")

	// ErrCapacity is returned when a join loses the race for the last open
	// slot. The caller may pick another room; nothing was written.
	ErrCapacity = errors.New("game is full")

	// ErrTimeout is returned when a store operation exceeded its bound.
	// Retryable: the caller may re-issue the request.
	ErrTimeout = errors.New("store operation timed out")

	// ErrPersistence is the generic write-failure category (constraint
	// violation, connectivity). Surfaced with a retry prompt, never
	// swallowed.
	ErrPersistence = errors.New("persistence failure")

	// ErrNotJoinable is returned when a first-time join targets a game
	// that already left the waiting state.
	ErrNotJoinable = errors.New("game is no longer joinable")
)
