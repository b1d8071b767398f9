package control

import (
	"math"
	"strconv"

	"github.com/nerrad567/gray-logic-av/internal/processor"
)

// Kind classifies a control for validation purposes.
type Kind string

// Validation kinds. Core control types map onto these via DescriptorFor;
// types with no validation semantics (triggers, unknown types) have no
// descriptor at all.
const (
	KindBoolean Kind = "Boolean"
	KindNumber  Kind = "Number"
	KindString  Kind = "String"
)

// TypeDescriptor is a control's declared type metadata, as far as validation
// is concerned. A nil descriptor means no validation applies and candidate
// values pass through unchanged.
type TypeDescriptor struct {
	Kind      Kind
	Min       *float64
	Max       *float64
	MaxLength *int
}

// DescriptorFor maps a core-declared control type onto a validation
// descriptor. Returns nil for types the validator has nothing to say about.
func DescriptorFor(info processor.ControlInfo) *TypeDescriptor {
	switch info.Type {
	case "Boolean":
		return &TypeDescriptor{Kind: KindBoolean}
	case "Float", "Integer", "Number":
		return &TypeDescriptor{Kind: KindNumber, Min: info.Min, Max: info.Max}
	case "String", "Text":
		return &TypeDescriptor{Kind: KindString, MaxLength: info.MaxLength}
	default:
		return nil
	}
}

// Validate checks a candidate value against a control's type descriptor and
// returns the coerced value the core should receive.
//
// Pure function: no I/O, no shared state. Booleans coerce to 0/1, numeric
// strings coerce to numbers, primitives coerce to strings. A nil descriptor
// passes the value through unchanged. Rejections return a *ValidationError
// naming the control and the violated constraint.
func Validate(name string, value any, td *TypeDescriptor) (any, error) {
	if td == nil {
		return value, nil
	}

	switch td.Kind {
	case KindBoolean:
		return validateBoolean(name, value)
	case KindNumber:
		return validateNumber(name, value, td)
	case KindString:
		return validateString(name, value, td)
	default:
		return value, nil
	}
}

// validateBoolean accepts true/false, 0/1 and the exact strings
// "true"/"false", converting all of them to 0/1.
func validateBoolean(name string, value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case float64:
		if v == 0 || v == 1 {
			return v, nil
		}
	case int:
		if v == 0 || v == 1 {
			return float64(v), nil
		}
	case string:
		switch v {
		case "true":
			return float64(1), nil
		case "false":
			return float64(0), nil
		}
	}
	return nil, invalid(name, "boolean value must be true, false, 0 or 1 (got %v)", value)
}

// validateNumber coerces numeric strings and enforces the inclusive min/max
// range when the descriptor declares one.
func validateNumber(name string, value any, td *TypeDescriptor) (any, error) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, invalid(name, "value %q is not numeric", v)
		}
		f = parsed
	default:
		return nil, invalid(name, "value must be a number (got %T)", value)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalid(name, "value must be a finite number")
	}
	if td.Min != nil && f < *td.Min {
		return nil, invalid(name, "value %v below minimum (%v)", trimFloat(f), trimFloat(*td.Min))
	}
	if td.Max != nil && f > *td.Max {
		return nil, invalid(name, "value %v above maximum (%v)", trimFloat(f), trimFloat(*td.Max))
	}
	return f, nil
}

// validateString converts primitive values via their display form and
// enforces the maximum length when the descriptor declares one.
func validateString(name string, value any, td *TypeDescriptor) (any, error) {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case float64, float32, int, int64, bool:
		s = processor.FormatValue(v)
	default:
		return nil, invalid(name, "value of type %T cannot be converted to string", value)
	}

	if td.MaxLength != nil && len(s) > *td.MaxLength {
		return nil, invalid(name, "string length %d exceeds maximum length (%d)", len(s), *td.MaxLength)
	}
	return s, nil
}

// trimFloat renders a float without trailing zeros for error messages.
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
