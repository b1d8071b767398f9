package control

import (
	"errors"
	"fmt"
)

// Domain errors for the control package.
var (
	// ErrControlNotFound is returned when a full control name does not
	// resolve against the indexed component tree.
	ErrControlNotFound = errors.New("control: not found")

	// ErrIndexBuild is returned when the component tree cannot be fetched
	// to (re)build the index.
	ErrIndexBuild = errors.New("control: index build failed")
)

// ValidationError describes a control value rejected by Validate.
//
// It carries the full control name and the specific constraint violated so
// batch operations can surface one message per control.
type ValidationError struct {
	Control string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("control %q: %s", e.Control, e.Reason)
}

func invalid(control, format string, args ...any) error {
	return &ValidationError{Control: control, Reason: fmt.Sprintf(format, args...)}
}
