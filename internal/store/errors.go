package store

import "errors"

// Common canonical store errors
var (
	// ErrEntityNotFound indicates that entity was not found in canonical state
	ErrEntityNotFound = errors.New("entity not found")

	// ErrVersionMismatch indicates a lost optimistic-locking race:
	// the entity changed since it was read
	ErrVersionMismatch = errors.New("entity version mismatch")

	// ErrConflictNotFound indicates that conflict record was not found
	ErrConflictNotFound = errors.New("conflict record not found")
)
