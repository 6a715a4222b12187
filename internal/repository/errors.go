package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates the normalized email is already taken.
	ErrDuplicateEmail = errors.New("repository: email already registered")
)
