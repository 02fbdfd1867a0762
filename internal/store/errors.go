package store

import "errors"

// ErrNotFound is returned when a record does not exist, or exists but is
// not visible to the requesting owner.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a user insert violates the unique
// email constraint.
var ErrDuplicateEmail = errors.New("email already registered")
