package repository

import "errors"

var (
	ErrNotFound = errors.New("record not found")
	// ErrStageConflict means the order left the expected stage before the
	// update landed
	ErrStageConflict = errors.New("order stage changed concurrently")
	ErrEmailExists   = errors.New("email already exists")
)
