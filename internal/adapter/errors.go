package adapter

import (
	"errors"
	"fmt"

	"github.com/nerrad567/gray-logic-av/internal/changegroup"
	"github.com/nerrad567/gray-logic-av/internal/control"
	"github.com/nerrad567/gray-logic-av/internal/processor"
	"github.com/nerrad567/gray-logic-av/internal/reliability"
)

// Command error codes. API surfaces map these onto their own status schemes.
const (
	// CodeInvalidParams marks missing or malformed parameters, including
	// unknown commands.
	CodeInvalidParams = "invalid_params"

	// CodeNotFound marks unresolvable components, controls and change
	// group ids.
	CodeNotFound = "not_found"

	// CodeValidationFailed marks control values rejected by type, range or
	// length validation.
	CodeValidationFailed = "validation_failed"

	// CodeTransient marks I/O failures that persisted through the retry
	// budget, and calls rejected because the core is disconnected.
	CodeTransient = "transient"

	// CodeCircuitOpen marks calls rejected by an open circuit breaker.
	CodeCircuitOpen = "circuit_open"

	// CodeInternal marks everything else.
	CodeInternal = "internal"
)

// CommandError is the typed failure a dispatched command surfaces.
type CommandError struct {
	// Code classifies the failure for programmatic handling.
	Code string

	// Message is the human-readable description.
	Message string

	// Err is the wrapped underlying error, when one exists.
	Err error
}

func (e *CommandError) Error() string {
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// invalidParams builds an input-error CommandError.
func invalidParams(format string, args ...any) *CommandError {
	return &CommandError{
		Code:    CodeInvalidParams,
		Message: fmt.Sprintf(format, args...),
	}
}

// commandError classifies err into a CommandError, passing through errors
// that are already classified.
func commandError(err error) *CommandError {
	if err == nil {
		return nil
	}

	var ce *CommandError
	if errors.As(err, &ce) {
		return ce
	}

	code := CodeInternal
	switch {
	case errors.Is(err, reliability.ErrCircuitOpen):
		code = CodeCircuitOpen
	case errors.Is(err, reliability.ErrRetriesExhausted),
		errors.Is(err, processor.ErrNotConnected):
		code = CodeTransient
	case errors.Is(err, control.ErrControlNotFound),
		errors.Is(err, processor.ErrComponentNotFound),
		errors.Is(err, processor.ErrControlNotFound),
		errors.Is(err, changegroup.ErrGroupNotFound):
		code = CodeNotFound
	case errors.Is(err, changegroup.ErrIDRequired),
		errors.Is(err, changegroup.ErrControlsRequired),
		errors.Is(err, changegroup.ErrControlsEmpty),
		errors.Is(err, changegroup.ErrInvalidRate),
		errors.Is(err, processor.ErrUnsupportedMethod):
		code = CodeInvalidParams
	default:
		var ve *control.ValidationError
		if errors.As(err, &ve) {
			code = CodeValidationFailed
		}
	}

	return &CommandError{
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}
