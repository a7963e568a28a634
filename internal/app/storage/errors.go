package storage

import "errors"

var (
	// ErrNotFound reports a lookup miss.
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrInUse reports that an entity is still referenced and cannot be
	// removed.
	ErrInUse = errors.New("in use")
)
