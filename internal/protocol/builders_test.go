package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lumenlab/lumen/internal/faults"
)

func TestSetPower(t *testing.T) {
	tests := []struct {
		name       string
		on         bool
		effect     Effect
		durationMs int
		wantErr    bool
		wantParams []any
	}{
		{
			name:       "on smooth",
			on:         true,
			effect:     EffectSmooth,
			durationMs: 500,
			wantParams: []any{"on", "smooth", float64(500)},
		},
		{
			name:       "off sudden zero duration",
			on:         false,
			effect:     EffectSudden,
			durationMs: 0,
			wantParams: []any{"off", "sudden", float64(0)},
		},
		{
			name:       "smooth below duration floor",
			on:         true,
			effect:     EffectSmooth,
			durationMs: 29,
			wantErr:    true,
		},
		{
			name:       "sudden with supplied short duration still validated",
			on:         true,
			effect:     EffectSudden,
			durationMs: 10,
			wantErr:    true,
		},
		{
			name:    "unknown effect",
			on:      true,
			effect:  Effect("fade"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := SetPower(tt.on, tt.effect, tt.durationMs)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("SetPower() error = nil, want validation error")
				}
				if !faults.IsValidation(err) {
					t.Errorf("SetPower() error kind = %v, want validation", faults.KindOf(err))
				}
				if cmd != nil {
					t.Errorf("SetPower() produced a command alongside an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("SetPower() error = %v", err)
			}
			checkWireForm(t, cmd, MethodSetPower, tt.wantParams)
		})
	}
}

func TestNumericBuilders_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		build   func() (*Command, error)
		wantErr bool
	}{
		{"brightness min", func() (*Command, error) { return SetBrightness(1, EffectSudden, 0) }, false},
		{"brightness max", func() (*Command, error) { return SetBrightness(100, EffectSudden, 0) }, false},
		{"brightness zero", func() (*Command, error) { return SetBrightness(0, EffectSudden, 0) }, true},
		{"brightness over", func() (*Command, error) { return SetBrightness(101, EffectSudden, 0) }, true},
		{"rgb min", func() (*Command, error) { return SetRGB(1, EffectSudden, 0) }, false},
		{"rgb max", func() (*Command, error) { return SetRGB(0xFFFFFF, EffectSudden, 0) }, false},
		{"rgb zero", func() (*Command, error) { return SetRGB(0, EffectSudden, 0) }, true},
		{"rgb over", func() (*Command, error) { return SetRGB(0x1000000, EffectSudden, 0) }, true},
		{"hue min", func() (*Command, error) { return SetHSV(0, 50, EffectSudden, 0) }, false},
		{"hue max", func() (*Command, error) { return SetHSV(359, 50, EffectSudden, 0) }, false},
		{"hue 360", func() (*Command, error) { return SetHSV(360, 50, EffectSudden, 0) }, true},
		{"sat over", func() (*Command, error) { return SetHSV(100, 101, EffectSudden, 0) }, true},
		{"sat negative", func() (*Command, error) { return SetHSV(100, -1, EffectSudden, 0) }, true},
		{"ct min", func() (*Command, error) { return SetColorTemp(1700, EffectSudden, 0) }, false},
		{"ct max", func() (*Command, error) { return SetColorTemp(6500, EffectSudden, 0) }, false},
		{"ct below", func() (*Command, error) { return SetColorTemp(1699, EffectSudden, 0) }, true},
		{"ct above", func() (*Command, error) { return SetColorTemp(6501, EffectSudden, 0) }, true},
		{"delay off one minute", func() (*Command, error) { return DelayOff(1) }, false},
		{"delay off zero minutes", func() (*Command, error) { return DelayOff(0) }, true},
		{"music port zero", func() (*Command, error) { return MusicOn("192.168.1.2", 0) }, true},
		{"music empty host", func() (*Command, error) { return MusicOn("", 55000) }, true},
		{"get_prop no names", func() (*Command, error) { return GetProps() }, true},
		{"set_name empty", func() (*Command, error) { return SetName("") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.build()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("builder error = nil, want validation error")
				}
				if !faults.IsValidation(err) {
					t.Errorf("builder error kind = %v, want validation", faults.KindOf(err))
				}
				if cmd != nil {
					t.Errorf("builder produced a command alongside an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("builder error = %v", err)
			}
			if cmd == nil {
				t.Fatalf("builder returned nil command without error")
			}
		})
	}
}

// TestBuilders_RoundTrip feeds each builder's encoded payload back through
// the decoder dressed as a device reply, checking that valid commands
// produce wire-legal JSON end to end.
func TestBuilders_RoundTrip(t *testing.T) {
	builders := []struct {
		name  string
		build func() (*Command, error)
	}{
		{"set_power", func() (*Command, error) { return SetPower(true, EffectSmooth, 400) }},
		{"toggle", Toggle},
		{"set_bright", func() (*Command, error) { return SetBrightness(75, EffectSmooth, 30) }},
		{"set_rgb", func() (*Command, error) { return SetRGB(0x00FF00, EffectSudden, 0) }},
		{"set_hsv", func() (*Command, error) { return SetHSV(180, 80, EffectSmooth, 100) }},
		{"set_ct_abx", func() (*Command, error) { return SetColorTemp(4000, EffectSmooth, 30) }},
		{"set_name", func() (*Command, error) { return SetName("desk") }},
		{"get_prop", func() (*Command, error) { return GetProps("power", "bright") }},
		{"set_default", SetDefault},
		{"cron_add", func() (*Command, error) { return DelayOff(15) }},
		{"cron_del", CancelDelayOff},
		{"set_music on", func() (*Command, error) { return MusicOn("192.168.1.2", 54321) }},
		{"set_music off", MusicOff},
		{"stop_cf", StopFlow},
	}

	for _, tt := range builders {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := tt.build()
			if err != nil {
				t.Fatalf("builder error = %v", err)
			}
			cmd.ID = 7
			payload, err := cmd.Encode()
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if !strings.HasSuffix(string(payload), "\r\n") {
				t.Errorf("payload not newline-terminated: %q", payload)
			}

			// A request echoed with a result field must classify as a result.
			var req map[string]any
			if err := json.Unmarshal([]byte(strings.TrimSpace(string(payload))), &req); err != nil {
				t.Fatalf("payload is not valid JSON: %v", err)
			}
			if _, ok := req["params"].([]any); !ok {
				t.Errorf("params missing or not an array: %v", req["params"])
			}
			reply := []byte(`{"id":7,"result":["ok"]}`)
			msg, err := Decode(reply)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			res, ok := msg.(*Result)
			if !ok {
				t.Fatalf("Decode() = %T, want *Result", msg)
			}
			if res.ID != 7 {
				t.Errorf("result id = %d, want 7", res.ID)
			}
		})
	}
}

func TestMusicOn_WireForm(t *testing.T) {
	cmd, err := MusicOn("192.168.1.10", 54321)
	if err != nil {
		t.Fatalf("MusicOn() error = %v", err)
	}
	checkWireForm(t, cmd, MethodSetMusic, []any{float64(1), "192.168.1.10", "54321"})
}

func TestMusicOff_WireForm(t *testing.T) {
	cmd, err := MusicOff()
	if err != nil {
		t.Fatalf("MusicOff() error = %v", err)
	}
	checkWireForm(t, cmd, MethodSetMusic, []any{float64(0)})
}

func TestEncode_EmptyParams(t *testing.T) {
	cmd, err := Toggle()
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	payload, err := cmd.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !strings.Contains(string(payload), `"params":[]`) {
		t.Errorf("payload missing empty params array: %s", payload)
	}
}

// checkWireForm encodes the command and compares method and params against
// the expected wire shape.
func checkWireForm(t *testing.T, cmd *Command, method string, params []any) {
	t.Helper()

	payload, err := cmd.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var decoded struct {
		ID     int    `json:"id"`
		Method string `json:"method"`
		Params []any  `json:"params"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(payload))), &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded.Method != method {
		t.Errorf("method = %q, want %q", decoded.Method, method)
	}
	if len(decoded.Params) != len(params) {
		t.Fatalf("params = %v, want %v", decoded.Params, params)
	}
	for i := range params {
		if decoded.Params[i] != params[i] {
			t.Errorf("params[%d] = %v (%T), want %v (%T)", i, decoded.Params[i], decoded.Params[i], params[i], params[i])
		}
	}
}
