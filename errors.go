package cybervault

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated is returned when an operation needs an identity and none is present
	ErrUnauthenticated = errors.New("authentication required")
	// ErrFileTooLarge is returned when a file exceeds the configured upload limit
	ErrFileTooLarge = errors.New("file too large")
	// ErrOrphanedBlob is returned when a blob was stored but no record points at it
	ErrOrphanedBlob = errors.New("orphaned blob")
	// ErrDanglingRecord is returned when a blob was removed but its record was not
	ErrDanglingRecord = errors.New("dangling record")
	// ErrStaleRecord is returned when a blob was replaced but its existing record was not updated
	ErrStaleRecord = errors.New("stale record")
	// ErrUnsupported is returned when a collaborator lacks an optional capability
	ErrUnsupported = errors.New("unsupported operation")
	// ErrSubmitDisabled is returned when a form is submitted while submission is disabled
	ErrSubmitDisabled = errors.New("submit disabled")
)
