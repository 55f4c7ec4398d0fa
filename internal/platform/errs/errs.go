package errs

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing rows.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
)
