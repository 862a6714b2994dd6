package domain

import "errors"

var (
	// ErrEntityNotFound is returned by a backend when the entity does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrBackendUnreachable is returned when the backend could not be reached
	// or kept failing after retries.
	ErrBackendUnreachable = errors.New("backend unreachable")
)
