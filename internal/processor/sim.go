package processor

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Sim is an in-memory processor core used by simulated mode, demos and
// integration-style tests. It serves a small fixed theatre design and honours
// the same contract as a real core client: per-control reads, coerced writes,
// and raw passthrough for Status.Get and ramped Control.Set.
//
// Thread Safety: all methods are safe for concurrent use.
type Sim struct {
	mu         sync.RWMutex
	connected  bool
	components []Component
	values     map[string]Value
	ramps      map[string]float64
}

// Ensure Sim implements Client.
var _ Client = (*Sim)(nil)

// NewSim creates a connected simulator serving the default design.
func NewSim() *Sim {
	s := &Sim{
		connected: true,
		values:    make(map[string]Value),
		ramps:     make(map[string]float64),
	}
	s.components = defaultDesign()
	for _, comp := range s.components {
		for _, ctl := range comp.Controls {
			v := NewValue(ctl.Value)
			v.Position = positionFor(ctl, ctl.Value)
			s.values[simKey(comp.Name, ctl.Name)] = v
		}
	}
	return s
}

// SetConnected toggles the simulated connection state.
func (s *Sim) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// IsConnected reports the simulated connection state.
func (s *Sim) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// ComponentTree returns a snapshot of the design with current control values.
// The returned slices are copies; mutating them does not affect the simulator.
func (s *Sim) ComponentTree(_ context.Context) ([]Component, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	tree := make([]Component, len(s.components))
	for i, comp := range s.components {
		out := comp
		out.Properties = append([]Property(nil), comp.Properties...)
		out.Controls = make([]ControlInfo, len(comp.Controls))
		for j, ctl := range comp.Controls {
			cur := s.values[simKey(comp.Name, ctl.Name)]
			ctl.Value = cur.Value
			ctl.String = cur.String
			ctl.Position = cur.Position
			out.Controls[j] = ctl
		}
		tree[i] = out
	}
	return tree, nil
}

// ControlValue reads the current value of one control.
func (s *Sim) ControlValue(_ context.Context, component, control string) (Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.connected {
		return Value{}, ErrNotConnected
	}

	v, ok := s.values[simKey(component, control)]
	if !ok {
		if s.findComponent(component) == nil {
			return Value{}, fmt.Errorf("%w: %q", ErrComponentNotFound, component)
		}
		return Value{}, fmt.Errorf("%w: %q on component %q", ErrControlNotFound, control, component)
	}
	return v, nil
}

// SetControlValue applies a new value to one control.
func (s *Sim) SetControlValue(_ context.Context, component, control string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(component, control, value)
}

// SendRaw implements the raw passthrough. The simulator understands
// Status.Get/StatusGet and Control.Set (with optional Ramp); everything else
// fails with ErrUnsupportedMethod.
func (s *Sim) SendRaw(_ context.Context, method string, params any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, ErrNotConnected
	}

	switch method {
	case "Status.Get", "StatusGet":
		return map[string]any{
			"Platform":    "GL AV Simulator",
			"State":       "Active",
			"DesignName":  "glav-sim-default",
			"DesignCode":  "SIM0001",
			"IsRedundant": false,
			"IsEmulator":  true,
			"Status":      map[string]any{"Code": 0, "String": "OK"},
		}, nil

	case "Control.Set":
		p, ok := params.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: Control.Set params must be an object", ErrUnsupportedMethod)
		}
		name, _ := p["Name"].(string)
		component, control, ok := s.splitKnown(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrControlNotFound, name)
		}
		if err := s.setLocked(component, control, p["Value"]); err != nil {
			return nil, err
		}
		if ramp, ok := p["Ramp"].(float64); ok {
			s.ramps[name] = ramp
		}
		return true, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
}

// LastRamp reports the ramp duration recorded by the most recent ramped
// Control.Set for the named control, if any.
func (s *Sim) LastRamp(fullName string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ramp, ok := s.ramps[fullName]
	return ramp, ok
}

// setLocked applies a value. Callers hold s.mu.
func (s *Sim) setLocked(component, control string, value any) error {
	if !s.connected {
		return ErrNotConnected
	}

	comp := s.findComponent(component)
	if comp == nil {
		return fmt.Errorf("%w: %q", ErrComponentNotFound, component)
	}
	var info *ControlInfo
	for i := range comp.Controls {
		if comp.Controls[i].Name == control {
			info = &comp.Controls[i]
			break
		}
	}
	if info == nil {
		return fmt.Errorf("%w: %q on component %q", ErrControlNotFound, control, component)
	}

	v := NewValue(value)
	v.Position = positionFor(*info, value)
	s.values[simKey(component, control)] = v
	return nil
}

// splitKnown resolves a full control name against the design. The split is
// first-dot-only, with a fallback scan for control names that embed dots.
func (s *Sim) splitKnown(fullName string) (component, control string, ok bool) {
	if fullName == "" {
		return "", "", false
	}
	if idx := strings.Index(fullName, "."); idx >= 0 {
		component, control = fullName[:idx], fullName[idx+1:]
		if _, exists := s.values[simKey(component, control)]; exists {
			return component, control, true
		}
	}
	for _, comp := range s.components {
		for _, ctl := range comp.Controls {
			if comp.Name+"."+ctl.Name == fullName {
				return comp.Name, ctl.Name, true
			}
		}
	}
	return "", "", false
}

func (s *Sim) findComponent(name string) *Component {
	for i := range s.components {
		if s.components[i].Name == name {
			return &s.components[i]
		}
	}
	return nil
}

func simKey(component, control string) string {
	return component + "\x00" + control
}

// positionFor derives the normalised 0..1 position for a value against the
// control's declared range. Controls without a range report zero or, for
// booleans, the value itself.
func positionFor(info ControlInfo, value any) float64 {
	f, ok := asFloat(value)
	if !ok {
		return 0
	}
	if info.Min != nil && info.Max != nil && *info.Max > *info.Min {
		pos := (f - *info.Min) / (*info.Max - *info.Min)
		if pos < 0 {
			pos = 0
		}
		if pos > 1 {
			pos = 1
		}
		return pos
	}
	if info.Type == "Boolean" && (f == 0 || f == 1) {
		return f
	}
	return 0
}

func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// defaultDesign is the simulator's built-in theatre design: front-of-house
// gain, a stage delay line, a programme info block and a small matrix with
// dotted control names.
func defaultDesign() []Component {
	return []Component{
		{
			Name: "HouseGain",
			Type: "gain",
			Properties: []Property{
				{Name: "multi_channel_type", Value: "1"},
			},
			Controls: []ControlInfo{
				{Name: "gain", Type: "Float", Direction: "Read/Write", Value: float64(-10), Min: f64(-100), Max: f64(20)},
				{Name: "mute", Type: "Boolean", Direction: "Read/Write", Value: float64(0)},
			},
		},
		{
			Name: "StageDelay",
			Type: "delay",
			Controls: []ControlInfo{
				{Name: "delay", Type: "Float", Direction: "Read/Write", Value: float64(120), Min: f64(0), Max: f64(500)},
				{Name: "bypass", Type: "Boolean", Direction: "Read/Write", Value: float64(0)},
			},
		},
		{
			Name: "ShowInfo",
			Type: "text",
			Controls: []ControlInfo{
				{Name: "title", Type: "Text", Direction: "Read/Write", Value: "Evening Performance", MaxLength: intp(64)},
				{Name: "advance", Type: "Trigger", Direction: "Write", Value: float64(0)},
			},
		},
		{
			Name: "Matrix",
			Type: "matrix_mixer",
			Controls: []ControlInfo{
				{Name: "input.1.gain", Type: "Float", Direction: "Read/Write", Value: float64(0), Min: f64(-100), Max: f64(20)},
				{Name: "input.1.mute", Type: "Boolean", Direction: "Read/Write", Value: float64(0)},
			},
		},
	}
}

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
