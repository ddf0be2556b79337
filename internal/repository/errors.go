package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert violates a uniqueness
	// constraint, e.g. a wallet transaction reference seen before.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrSerialization is returned when a transaction loses a
	// serialization race or times out and should be retried by the caller.
	ErrSerialization = errors.New("transaction serialization failure")
)
