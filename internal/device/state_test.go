package device

import (
	"reflect"
	"testing"
)

func TestApplyProperty_Coercion(t *testing.T) {
	tests := []struct {
		name     string
		property string
		raw      any
		check    func(t *testing.T, s State)
	}{
		{"power on string", "power", "on", func(t *testing.T, s State) {
			if !s.Power {
				t.Error("Power = false, want true")
			}
		}},
		{"power off string", "power", "off", func(t *testing.T, s State) {
			if s.Power {
				t.Error("Power = true, want false")
			}
		}},
		{"power json number", "power", float64(1), func(t *testing.T, s State) {
			if !s.Power {
				t.Error("Power = false, want true")
			}
		}},
		{"bright json number", "bright", float64(50), func(t *testing.T, s State) {
			if s.Bright != 50 {
				t.Errorf("Bright = %d, want 50", s.Bright)
			}
		}},
		{"bright decimal string", "bright", "100", func(t *testing.T, s State) {
			if s.Bright != 100 {
				t.Errorf("Bright = %d, want 100", s.Bright)
			}
		}},
		{"ct", "ct", float64(4000), func(t *testing.T, s State) {
			if s.ColorTemp != 4000 {
				t.Errorf("ColorTemp = %d, want 4000", s.ColorTemp)
			}
		}},
		{"rgb", "rgb", float64(16711680), func(t *testing.T, s State) {
			if s.RGB != 16711680 {
				t.Errorf("RGB = %d, want 16711680", s.RGB)
			}
		}},
		{"hue edge", "hue", float64(359), func(t *testing.T, s State) {
			if s.Hue != 359 {
				t.Errorf("Hue = %d, want 359", s.Hue)
			}
		}},
		{"sat zero", "sat", float64(0), func(t *testing.T, s State) {
			if s.Sat != 0 {
				t.Errorf("Sat = %d, want 0", s.Sat)
			}
		}},
		{"color mode", "color_mode", float64(2), func(t *testing.T, s State) {
			if s.ColorMode != ColorModeColorTemp {
				t.Errorf("ColorMode = %v, want color-temp", s.ColorMode)
			}
		}},
		{"flowing numeric", "flowing", float64(1), func(t *testing.T, s State) {
			if !s.Flowing {
				t.Error("Flowing = false, want true")
			}
		}},
		{"flow params list", "flow_params", "1000,2,2700,100,500,1,255,10", func(t *testing.T, s State) {
			want := []int{1000, 2, 2700, 100, 500, 1, 255, 10}
			if !reflect.DeepEqual(s.FlowParams, want) {
				t.Errorf("FlowParams = %v, want %v", s.FlowParams, want)
			}
		}},
		{"music on", "music_on", float64(1), func(t *testing.T, s State) {
			if !s.MusicOn {
				t.Error("MusicOn = false, want true")
			}
		}},
		{"delayoff", "delayoff", float64(15), func(t *testing.T, s State) {
			if s.DelayOff != 15 {
				t.Errorf("DelayOff = %d, want 15", s.DelayOff)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s State
			known, err := s.applyProperty(tt.property, tt.raw)
			if err != nil {
				t.Fatalf("applyProperty(%q, %v) error = %v", tt.property, tt.raw, err)
			}
			if !known {
				t.Fatalf("applyProperty(%q) reported unknown", tt.property)
			}
			tt.check(t, s)
		})
	}
}

func TestApplyProperty_RejectsAndRetainsLastKnown(t *testing.T) {
	tests := []struct {
		name     string
		property string
		raw      any
	}{
		{"bright above range", "bright", float64(101)},
		{"bright below range", "bright", float64(0)},
		{"ct below range", "ct", float64(1699)},
		{"ct above range", "ct", float64(6501)},
		{"rgb zero", "rgb", float64(0)},
		{"hue above range", "hue", float64(360)},
		{"sat above range", "sat", float64(101)},
		{"bright fractional", "bright", float64(50.5)},
		{"bright wrong type", "bright", true},
		{"power garbage string", "power", "maybe"},
		{"flow params not multiple of 4", "flow_params", "1000,2,2700"},
		{"flow params non-numeric", "flow_params", "a,b,c,d"},
		{"color mode out of range", "color_mode", float64(4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Bright: 40, ColorTemp: 3000, RGB: 255, Hue: 10, Sat: 5}
			before := s.clone()
			_, err := s.applyProperty(tt.property, tt.raw)
			if err == nil {
				t.Fatalf("applyProperty(%q, %v) error = nil, want rejection", tt.property, tt.raw)
			}
			if !reflect.DeepEqual(s, before) {
				t.Errorf("state changed on rejected property: %+v -> %+v", before, s)
			}
		})
	}
}

func TestApplyProperty_UnknownName(t *testing.T) {
	var s State
	known, err := s.applyProperty("fw_ver", "18")
	if err != nil {
		t.Fatalf("applyProperty() error = %v", err)
	}
	if known {
		t.Error("applyProperty() reported known for unrecognized property")
	}
}

func TestApplyProps_BatchContinuesPastFailure(t *testing.T) {
	d := &Device{id: "0xtest"}
	d.ApplyProps(map[string]any{
		"bright": float64(900), // out of range, must be skipped
		"power":  "on",
		"ct":     float64(5000),
		"name":   "desk",
	})

	s := d.State()
	if !s.Power {
		t.Error("Power = false, want true despite sibling rejection")
	}
	if s.ColorTemp != 5000 {
		t.Errorf("ColorTemp = %d, want 5000", s.ColorTemp)
	}
	if s.Bright != 0 {
		t.Errorf("Bright = %d, want untouched 0", s.Bright)
	}
	if d.Info().Name != "desk" {
		t.Errorf("Name = %q, want desk", d.Info().Name)
	}
}

func TestStateClone_DoesNotAliasFlowParams(t *testing.T) {
	s := State{FlowParams: []int{1000, 2, 2700, 100}}
	c := s.clone()
	c.FlowParams[0] = 1
	if s.FlowParams[0] != 1000 {
		t.Error("clone aliases FlowParams")
	}
}

func TestColorMode_String(t *testing.T) {
	tests := []struct {
		mode ColorMode
		want string
	}{
		{ColorModeRGB, "rgb"},
		{ColorModeColorTemp, "color-temp"},
		{ColorModeHSV, "hsv"},
		{ColorMode(9), "mode(9)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("ColorMode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
