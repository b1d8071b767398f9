package adapter

import (
	"testing"
)

// ─────────────────────────────────────────────────────────────────────────────
// Read-shape normalization
// ─────────────────────────────────────────────────────────────────────────────

func TestControlNames(t *testing.T) {
	tests := []struct {
		name    string
		params  any
		want    []string
		wantErr bool
	}{
		{"nil params", nil, []string{}, false},
		{"bare string array", []any{"Gain1.gain", "Gain1.mute"}, []string{"Gain1.gain", "Gain1.mute"}, false},
		{"typed string slice", []string{"Gain1.gain"}, []string{"Gain1.gain"}, false},
		{"object entries", []any{map[string]any{"Name": "Gain1.gain"}}, []string{"Gain1.gain"}, false},
		{"mixed entries", []any{"Gain1.gain", map[string]any{"Name": "Gain1.mute"}}, []string{"Gain1.gain", "Gain1.mute"}, false},
		{"Controls wrapper", map[string]any{"Controls": []any{"Gain1.gain"}}, []string{"Gain1.gain"}, false},
		{"Names wrapper", map[string]any{"Names": []any{"Gain1.gain"}}, []string{"Gain1.gain"}, false},
		{"single Name object", map[string]any{"Name": "Gain1.gain"}, []string{"Gain1.gain"}, false},
		{"single bare string", "Gain1.gain", []string{"Gain1.gain"}, false},
		{"empty object", map[string]any{}, []string{}, false},
		{"empty array", []any{}, []string{}, false},
		{"empty Controls", map[string]any{"Controls": []any{}}, []string{}, false},
		{"numeric params", 42, nil, true},
		{"numeric entry", []any{42}, nil, true},
		{"entry without name", []any{map[string]any{"Value": 1}}, nil, true},
		{"object without recognised keys", map[string]any{"Filter": "x"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := controlNames(tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("controlNames() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("controlNames() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("controlNames()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Write-shape normalization
// ─────────────────────────────────────────────────────────────────────────────

func TestSetTargets(t *testing.T) {
	tests := []struct {
		name    string
		params  any
		wantLen int
		wantErr bool
		check   func(t *testing.T, targets []setTarget)
	}{
		{
			name:    "single entry",
			params:  map[string]any{"Name": "Gain1.gain", "Value": -6.0},
			wantLen: 1,
			check: func(t *testing.T, targets []setTarget) {
				if targets[0].Name != "Gain1.gain" || !targets[0].HasValue || targets[0].Value != -6.0 {
					t.Errorf("target = %+v, want Gain1.gain = -6", targets[0])
				}
				if targets[0].Ramp != nil {
					t.Error("Ramp should be nil when not supplied")
				}
			},
		},
		{
			name:    "single entry with ramp",
			params:  map[string]any{"Name": "Gain1.gain", "Value": 0.0, "Ramp": 2.5},
			wantLen: 1,
			check: func(t *testing.T, targets []setTarget) {
				if targets[0].Ramp == nil || *targets[0].Ramp != 2.5 {
					t.Errorf("Ramp = %v, want 2.5", targets[0].Ramp)
				}
			},
		},
		{
			name: "controls wrapper",
			params: map[string]any{"Controls": []any{
				map[string]any{"Name": "a", "Value": 1.0},
				map[string]any{"Name": "b", "Value": 2.0},
			}},
			wantLen: 2,
		},
		{
			name: "bare array",
			params: []any{
				map[string]any{"Name": "a", "Value": 1.0},
			},
			wantLen: 1,
		},
		{
			name:    "position only",
			params:  map[string]any{"Name": "a", "Position": 0.5},
			wantLen: 1,
			check: func(t *testing.T, targets []setTarget) {
				if targets[0].HasValue {
					t.Error("HasValue should be false for a position-only entry")
				}
				if targets[0].Position == nil || *targets[0].Position != 0.5 {
					t.Errorf("Position = %v, want 0.5", targets[0].Position)
				}
			},
		},
		{
			name:    "explicit null value",
			params:  map[string]any{"Name": "a", "Value": nil},
			wantLen: 1,
			check: func(t *testing.T, targets []setTarget) {
				if !targets[0].HasValue {
					t.Error("HasValue should be true when the key is present")
				}
			},
		},
		{"nil params", nil, 0, false, nil},
		{"empty object", map[string]any{}, 0, false, nil},
		{"missing name", map[string]any{"Value": 1.0}, 0, true, nil},
		{"non-object entry", []any{"Gain1.gain"}, 0, true, nil},
		{"numeric params", 42, 0, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := setTargets(tt.params)
			if (err != nil) != tt.wantErr {
				t.Fatalf("setTargets() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(targets) != tt.wantLen {
				t.Fatalf("setTargets() length = %d, want %d", len(targets), tt.wantLen)
			}
			if tt.check != nil {
				tt.check(t, targets)
			}
		})
	}
}

func TestLooseID(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{"string id", map[string]any{"Id": "g1"}, "g1"},
		{"numeric id", map[string]any{"Id": 5.0}, "5"},
		{"integer id", map[string]any{"Id": 7}, "7"},
		{"missing id", map[string]any{}, ""},
		{"nil map", nil, ""},
		{"object id", map[string]any{"Id": map[string]any{}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looseID(tt.params, "Id"); got != tt.want {
				t.Errorf("looseID() = %q, want %q", got, tt.want)
			}
		})
	}
}
