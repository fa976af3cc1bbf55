// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	// ErrConfiguration marks a fatal setup problem (no workspace root, no
	// vaults, unreadable vault) detected before any planning happens.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoActiveNote is returned for file-scoped runs without a selected note.
	ErrNoActiveNote = errors.New("no active note")
)
