// Package repository holds the storage errors shared by every repository
// implementation.
package repository

import "errors"

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness constraint or a state check
	// fails because another writer got there first.
	ErrConflict = errors.New("conflict: record already exists or changed")

	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
