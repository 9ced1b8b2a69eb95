package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncAlreadyRunning indicates a sync run is already in progress
	ErrSyncAlreadyRunning = errors.New("sync already running")

	// ErrFilterRequired indicates a global sync was requested without a JQL filter
	ErrFilterRequired = errors.New("JQL query is required for global sync")

	// ErrProjectKeyRequired indicates a project-scoped fetch without a resolvable key
	ErrProjectKeyRequired = errors.New("project key is required when no JQL query is provided")

	// ErrPayloadTooLarge indicates a queue payload exceeds the size ceiling
	ErrPayloadTooLarge = errors.New("payload too large")
)
