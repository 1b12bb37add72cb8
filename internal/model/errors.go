package model

import "errors"

var (
	// ErrTaskNotFound is returned by task updates that name an unknown task.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidTransition is returned when a status change would move a
	// task backwards or to an unknown status.
	ErrInvalidTransition = errors.New("invalid status transition")
)
