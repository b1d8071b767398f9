package adapter

import (
	"github.com/nerrad567/gray-logic-av/internal/processor"
)

// setTarget is the canonical form of one control write, produced from any of
// the accepted parameter shapes.
type setTarget struct {
	Name     string
	Value    any
	HasValue bool
	Position *float64
	Ramp     *float64
}

// asMap coerces params to an object. Nil params coerce to an absent map.
func asMap(params any) (map[string]any, bool) {
	if params == nil {
		return nil, true
	}
	m, ok := params.(map[string]any)
	return m, ok
}

// asFloat coerces the numeric types JSON decoding and in-process callers
// produce.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// stringField extracts a string value from an object field. Absent or
// non-string fields return "".
func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// looseID extracts a change group id, stringifying numeric ids for callers
// that send them unquoted.
func looseID(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64, float32, int, int64, uint64:
		return processor.FormatValue(v)
	}
	return ""
}

// entryName extracts a control name from a list entry, which may be a bare
// string or a {Name: …} object.
func entryName(entry any) (string, bool) {
	switch e := entry.(type) {
	case string:
		return e, e != ""
	case map[string]any:
		name := stringField(e, "Name")
		return name, name != ""
	}
	return "", false
}

// nameList normalizes an array of string-or-object entries to control names.
// Entries without a usable name fail the whole list: a batch result cannot be
// keyed without one.
func nameList(raw any) ([]string, error) {
	entries, err := anySlice(raw)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name, ok := entryName(entry)
		if !ok {
			return nil, invalidParams("control entries must be names or {Name} objects")
		}
		names = append(names, name)
	}
	return names, nil
}

// anySlice coerces the array forms callers send: a JSON-decoded []any or an
// in-process []string.
func anySlice(raw any) ([]any, error) {
	switch entries := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return entries, nil
	case []string:
		out := make([]any, len(entries))
		for i, s := range entries {
			out[i] = s
		}
		return out, nil
	}
	return nil, invalidParams("expected an array of controls")
}

// controlNames normalizes every accepted read shape to a flat name list:
// a bare array, {Controls: […]}, {Names: […]}, or a single {Name: …}.
// Empty and absent parameters normalize to an empty list, not an error.
func controlNames(params any) ([]string, error) {
	switch p := params.(type) {
	case nil:
		return []string{}, nil
	case []any, []string:
		return nameList(p)
	case string:
		if p == "" {
			return []string{}, nil
		}
		return []string{p}, nil
	case map[string]any:
		if raw, ok := p["Controls"]; ok {
			return nameList(raw)
		}
		if raw, ok := p["Names"]; ok {
			return nameList(raw)
		}
		if name := stringField(p, "Name"); name != "" {
			return []string{name}, nil
		}
		if len(p) == 0 {
			return []string{}, nil
		}
	}
	return nil, invalidParams("expected an array of controls, {Controls}, {Names} or {Name}")
}

// setEntry normalizes one write entry object.
func setEntry(entry any) (setTarget, error) {
	m, ok := entry.(map[string]any)
	if !ok {
		return setTarget{}, invalidParams("set entries must be {Name, Value} objects")
	}
	name := stringField(m, "Name")
	if name == "" {
		return setTarget{}, invalidParams("control name required")
	}

	target := setTarget{Name: name}
	if v, present := m["Value"]; present {
		target.Value = v
		target.HasValue = true
	}
	if pos, ok := asFloat(m["Position"]); ok {
		target.Position = &pos
	}
	if ramp, ok := asFloat(m["Ramp"]); ok {
		target.Ramp = &ramp
	}
	return target, nil
}

// setTargets normalizes every accepted write shape: a single
// {Name, Value, Ramp?}, {Controls: […]}, or a bare array of entry objects.
// Empty and absent parameters normalize to an empty list.
func setTargets(params any) ([]setTarget, error) {
	var raw any
	switch p := params.(type) {
	case nil:
		return []setTarget{}, nil
	case []any:
		raw = p
	case map[string]any:
		if controls, ok := p["Controls"]; ok {
			raw = controls
		} else {
			if len(p) == 0 {
				return []setTarget{}, nil
			}
			target, err := setEntry(p)
			if err != nil {
				return nil, err
			}
			return []setTarget{target}, nil
		}
	default:
		return nil, invalidParams("expected {Name, Value}, {Controls: […]} or an array of set entries")
	}

	entries, err := anySlice(raw)
	if err != nil {
		return nil, err
	}
	targets := make([]setTarget, 0, len(entries))
	for _, entry := range entries {
		target, err := setEntry(entry)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}
