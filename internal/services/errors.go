package services

import "errors"

var (
	// ErrProjectNotFound is returned when a project id does not resolve to a row
	ErrProjectNotFound = errors.New("project not found")

	// ErrTagNotFound is returned when a tag id does not resolve to a row
	ErrTagNotFound = errors.New("tag not found")

	// ErrInvalidStatus is returned for a status outside W/A/D
	ErrInvalidStatus = errors.New("invalid project status")

	// ErrInvalidTransition is returned when the moderation workflow refuses a status change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrForbidden is returned when the caller lacks the privilege for an operation
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for missing or malformed input
	ErrValidation = errors.New("validation failed")
)
