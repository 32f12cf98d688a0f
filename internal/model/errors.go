package model

import "errors"

var (
	// ErrTaskNotFound is returned when no task matches the given id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrStatusChanged is returned when a guarded update finds the task in a
	// different status than expected.
	ErrStatusChanged = errors.New("task status changed")
)
