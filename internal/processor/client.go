package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Domain errors for the processor package.
var (
	// ErrNotConnected is returned when an operation requires a live core
	// connection but the client is disconnected.
	ErrNotConnected = errors.New("processor: not connected to core")

	// ErrComponentNotFound is returned when a named component does not exist
	// in the core's running design.
	ErrComponentNotFound = errors.New("processor: component not found")

	// ErrControlNotFound is returned when a named control does not exist on
	// the addressed component.
	ErrControlNotFound = errors.New("processor: control not found")

	// ErrUnsupportedMethod is returned by SendRaw for methods the core does
	// not implement.
	ErrUnsupportedMethod = errors.New("processor: unsupported method")
)

// Value is a control's observed state as reported by the core.
//
// String is always derived from Value (see FormatValue); callers never supply
// it independently. Position is the core's normalised 0..1 representation
// where one exists, zero otherwise.
type Value struct {
	Value    any
	String   string
	Position float64
}

// NewValue builds a Value with its display string derived from v.
func NewValue(v any) Value {
	return Value{Value: v, String: FormatValue(v)}
}

// FormatValue renders a control value as its display string.
//
// Floats render without trailing zeros (so -10.0 becomes "-10"), matching how
// the core displays numeric control state.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Property is a design-time component property (name/value pair).
type Property struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// ControlInfo describes one control in the core's component tree, including
// its declared type metadata and last snapshotted state.
type ControlInfo struct {
	// Name is the control's name within its component. It may itself
	// contain dots.
	Name string

	// Type is the core's declared control type ("Boolean", "Float",
	// "Integer", "Text", "Trigger", ...). Empty when the core reports none.
	Type string

	// Direction reports whether the control is readable, writable or both
	// ("Read", "Write", "Read/Write").
	Direction string

	// Value, String and Position carry the state captured when the tree
	// snapshot was taken.
	Value    any
	String   string
	Position float64

	// Min and Max bound numeric controls when the core declares limits.
	Min *float64
	Max *float64

	// MaxLength bounds text controls when the core declares a limit.
	MaxLength *int
}

// Component is one named container of controls in the core's running design.
type Component struct {
	Name       string
	Type       string
	Properties []Property
	Controls   []ControlInfo
}

// Client is the narrow interface to a processor core.
//
// Implementations wrap whatever transport reaches the core (or simulate one,
// see Sim). The adapter treats the connection as a single shared resource and
// performs no pooling.
type Client interface {
	// IsConnected reports whether the core connection is currently live.
	IsConnected() bool

	// ComponentTree returns a snapshot of the running design's components
	// and their controls, including current values and type metadata.
	ComponentTree(ctx context.Context) ([]Component, error)

	// ControlValue synchronously reads the current value of one control.
	ControlValue(ctx context.Context, component, control string) (Value, error)

	// SetControlValue applies a new value to one control. The value must
	// already be coerced to the control's declared type.
	SetControlValue(ctx context.Context, component, control string, value any) error

	// SendRaw passes a method and params straight through to the core for
	// operations with no typed equivalent (ramped sets, Status.Get).
	SendRaw(ctx context.Context, method string, params any) (any, error)
}
