package store

import "errors"

var (
	// ErrNotFound is returned when a record addressed by id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPersistence wraps backend read/write failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)
