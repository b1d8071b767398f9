package control

import "strings"

// Ref identifies a single addressable control: a component name (empty for
// bare named controls) and the control's name within it.
type Ref struct {
	Component string
	Control   string
}

// FullName returns the joined "Component.Control" form of the reference.
func (r Ref) FullName() string {
	return JoinName(r.Component, r.Control)
}

// SplitName splits a full control name on the first dot only.
//
// "HouseGain.gain" → ("HouseGain", "gain"), "Matrix.input.1.gain" →
// ("Matrix", "input.1.gain"). A name with no dot is a bare named control with
// an empty component.
func SplitName(fullName string) (component, control string) {
	idx := strings.Index(fullName, ".")
	if idx < 0 {
		return "", fullName
	}
	return fullName[:idx], fullName[idx+1:]
}

// JoinName is the inverse of SplitName: an empty component yields the bare
// control name, so split/join round-trips exactly.
func JoinName(component, control string) string {
	if component == "" {
		return control
	}
	return component + "." + control
}
