package cache

import "errors"

// Errors
var (
	// ErrItemNotFound means the id is unknown upstream even after a
	// complete fetch attempt. Not retryable.
	ErrItemNotFound = errors.New("cache item not found")

	// ErrCacheUnavailable means a required locale could not be fetched
	// because the data collaborator failed. Callers may retry.
	ErrCacheUnavailable = errors.New("cache unavailable")
)
