package processor

import (
	"context"
	"errors"
	"testing"
)

// ─── Reads ─────────────────────────────────────────────────────────

func TestSimControlValue(t *testing.T) {
	s := NewSim()
	ctx := context.Background()

	v, err := s.ControlValue(ctx, "HouseGain", "gain")
	if err != nil {
		t.Fatalf("ControlValue() error = %v", err)
	}
	if v.Value != float64(-10) {
		t.Errorf("Value = %v, want -10", v.Value)
	}
	if v.String != "-10" {
		t.Errorf("String = %q, want %q", v.String, "-10")
	}

	if _, err := s.ControlValue(ctx, "HouseGain", "missing"); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("unknown control error = %v, want ErrControlNotFound", err)
	}
	if _, err := s.ControlValue(ctx, "NoSuchComponent", "gain"); !errors.Is(err, ErrComponentNotFound) {
		t.Errorf("unknown component error = %v, want ErrComponentNotFound", err)
	}
}

func TestSimComponentTreeSnapshotIsolation(t *testing.T) {
	s := NewSim()
	ctx := context.Background()

	tree, err := s.ComponentTree(ctx)
	if err != nil {
		t.Fatalf("ComponentTree() error = %v", err)
	}
	if len(tree) == 0 {
		t.Fatal("ComponentTree() returned empty design")
	}

	// Mutating the snapshot must not leak into the simulator.
	tree[0].Controls[0].Value = float64(999)

	v, err := s.ControlValue(ctx, tree[0].Name, "gain")
	if err != nil {
		t.Fatalf("ControlValue() error = %v", err)
	}
	if v.Value == float64(999) {
		t.Error("snapshot mutation leaked into simulator state")
	}
}

// ─── Writes ────────────────────────────────────────────────────────

func TestSimSetControlValue(t *testing.T) {
	s := NewSim()
	ctx := context.Background()

	if err := s.SetControlValue(ctx, "HouseGain", "gain", float64(20)); err != nil {
		t.Fatalf("SetControlValue() error = %v", err)
	}

	v, err := s.ControlValue(ctx, "HouseGain", "gain")
	if err != nil {
		t.Fatalf("ControlValue() error = %v", err)
	}
	if v.Value != float64(20) {
		t.Errorf("Value = %v, want 20", v.Value)
	}
	if v.String != "20" {
		t.Errorf("String = %q, want %q", v.String, "20")
	}
	// Range is -100..20, so full scale.
	if v.Position != 1 {
		t.Errorf("Position = %v, want 1", v.Position)
	}

	if err := s.SetControlValue(ctx, "HouseGain", "missing", float64(1)); !errors.Is(err, ErrControlNotFound) {
		t.Errorf("unknown control error = %v, want ErrControlNotFound", err)
	}
}

func TestSimDisconnected(t *testing.T) {
	s := NewSim()
	s.SetConnected(false)
	ctx := context.Background()

	if s.IsConnected() {
		t.Error("IsConnected() = true after SetConnected(false)")
	}
	if _, err := s.ControlValue(ctx, "HouseGain", "gain"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ControlValue error = %v, want ErrNotConnected", err)
	}
	if err := s.SetControlValue(ctx, "HouseGain", "gain", float64(0)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SetControlValue error = %v, want ErrNotConnected", err)
	}
	if _, err := s.ComponentTree(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ComponentTree error = %v, want ErrNotConnected", err)
	}
	if _, err := s.SendRaw(ctx, "Status.Get", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendRaw error = %v, want ErrNotConnected", err)
	}
}

// ─── Raw passthrough ───────────────────────────────────────────────

func TestSimSendRawStatus(t *testing.T) {
	s := NewSim()

	for _, method := range []string{"Status.Get", "StatusGet"} {
		result, err := s.SendRaw(context.Background(), method, nil)
		if err != nil {
			t.Fatalf("SendRaw(%q) error = %v", method, err)
		}
		status, ok := result.(map[string]any)
		if !ok {
			t.Fatalf("SendRaw(%q) result type = %T, want map", method, result)
		}
		if status["IsEmulator"] != true {
			t.Errorf("IsEmulator = %v, want true", status["IsEmulator"])
		}
		if status["Platform"] == "" {
			t.Error("Platform is empty")
		}
	}
}

func TestSimSendRawRampedSet(t *testing.T) {
	s := NewSim()
	ctx := context.Background()

	_, err := s.SendRaw(ctx, "Control.Set", map[string]any{
		"Name":  "Matrix.input.1.gain",
		"Value": float64(-6),
		"Ramp":  float64(2.5),
	})
	if err != nil {
		t.Fatalf("SendRaw(Control.Set) error = %v", err)
	}

	v, err := s.ControlValue(ctx, "Matrix", "input.1.gain")
	if err != nil {
		t.Fatalf("ControlValue() error = %v", err)
	}
	if v.Value != float64(-6) {
		t.Errorf("Value = %v, want -6", v.Value)
	}

	ramp, ok := s.LastRamp("Matrix.input.1.gain")
	if !ok {
		t.Fatal("LastRamp() recorded nothing")
	}
	if ramp != 2.5 {
		t.Errorf("ramp = %v, want 2.5", ramp)
	}
}

func TestSimSendRawUnsupported(t *testing.T) {
	s := NewSim()

	if _, err := s.SendRaw(context.Background(), "Design.Save", nil); !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("error = %v, want ErrUnsupportedMethod", err)
	}
}

// ─── Formatting ────────────────────────────────────────────────────

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"negative float", float64(-10), "-10"},
		{"fractional float", float64(2.5), "2.5"},
		{"integer", 42, "42"},
		{"bool true", true, "true"},
		{"bool false", false, "false"},
		{"string", "hello", "hello"},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.value); got != tt.want {
				t.Errorf("FormatValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
