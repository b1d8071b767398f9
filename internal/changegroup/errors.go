package changegroup

import "errors"

// Domain errors for the changegroup package. The messages are part of the
// command surface: dispatch callers see them verbatim.
var (
	// ErrIDRequired is returned when an operation is missing its group id.
	ErrIDRequired = errors.New("change group ID required")

	// ErrGroupNotFound is returned for operations on an unknown or
	// destroyed group id.
	ErrGroupNotFound = errors.New("change group not found")

	// ErrControlsRequired is returned when Remove is called without a
	// controls array.
	ErrControlsRequired = errors.New("controls array required")

	// ErrControlsEmpty is returned when Remove is called with an empty
	// controls array.
	ErrControlsEmpty = errors.New("controls array must not be empty")

	// ErrInvalidRate is returned when AutoPoll is given a non-positive rate.
	ErrInvalidRate = errors.New("auto-poll rate must be greater than zero")

	// ErrEngineClosed is returned for any operation after Close.
	ErrEngineClosed = errors.New("change group engine closed")
)
