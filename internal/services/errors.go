package services

import "errors"

var (
	// ErrValidation marks an operator mutation rejected at save time.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a missing trigger or notification.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition marks a state-machine violation, e.g. editing
	// a sent notification.
	ErrInvalidTransition = errors.New("invalid status transition")
)
