package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// ErrNoAPIKeys is returned when a dispatch is attempted with an empty
	// credential pool. It is a configuration failure and is never retried.
	ErrNoAPIKeys = errors.New("no api keys configured")

	// ErrVideoNotRetryable is returned when a retry is requested for a video
	// that is not in a terminal error state.
	ErrVideoNotRetryable = errors.New("video is not in error state")
)
