package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumenlab/lumen/internal/faults"
	"github.com/lumenlab/lumen/internal/protocol"
)

// ColorMode is the active color subsystem of a light.
type ColorMode int

const (
	// ColorModeRGB means the light renders its rgb value.
	ColorModeRGB ColorMode = 1
	// ColorModeColorTemp means the light renders its color temperature.
	ColorModeColorTemp ColorMode = 2
	// ColorModeHSV means the light renders its hue/saturation pair.
	ColorModeHSV ColorMode = 3
)

// String returns a human-readable name for the color mode.
func (m ColorMode) String() string {
	switch m {
	case ColorModeRGB:
		return "rgb"
	case ColorModeColorTemp:
		return "color-temp"
	case ColorModeHSV:
		return "hsv"
	default:
		return fmt.Sprintf("mode(%d)", m)
	}
}

// State is the last known state of a light. Numeric fields, once ever
// updated, satisfy their closed protocol range.
type State struct {
	Power      bool
	ColorMode  ColorMode
	Bright     int
	ColorTemp  int
	RGB        int
	Hue        int
	Sat        int
	Flowing    bool
	FlowParams []int
	MusicOn    bool
	DelayOff   int // minutes; 0 = no scheduled power-off
}

// clone returns a deep copy, so snapshots do not alias FlowParams.
func (s State) clone() State {
	out := s
	if s.FlowParams != nil {
		out.FlowParams = append([]int(nil), s.FlowParams...)
	}
	return out
}

// applyProperty coerces and range checks one pushed property against the
// state. It reports whether the named property is a state property at all;
// name changes and unknown names are left to the caller.
func (s *State) applyProperty(name string, raw any) (known bool, err error) {
	switch name {
	case "power":
		v, err := coerceBool(raw)
		if err != nil {
			return true, err
		}
		s.Power = v
	case "bright":
		v, err := coerceRangedInt(raw, protocol.MinBright, protocol.MaxBright)
		if err != nil {
			return true, err
		}
		s.Bright = v
	case "ct":
		v, err := coerceRangedInt(raw, protocol.MinColorTemp, protocol.MaxColorTemp)
		if err != nil {
			return true, err
		}
		s.ColorTemp = v
	case "rgb":
		v, err := coerceRangedInt(raw, protocol.MinRGB, protocol.MaxRGB)
		if err != nil {
			return true, err
		}
		s.RGB = v
	case "hue":
		v, err := coerceRangedInt(raw, 0, protocol.MaxHue)
		if err != nil {
			return true, err
		}
		s.Hue = v
	case "sat":
		v, err := coerceRangedInt(raw, 0, protocol.MaxSat)
		if err != nil {
			return true, err
		}
		s.Sat = v
	case "color_mode":
		v, err := coerceRangedInt(raw, int(ColorModeRGB), int(ColorModeHSV))
		if err != nil {
			return true, err
		}
		s.ColorMode = ColorMode(v)
	case "flowing":
		v, err := coerceBool(raw)
		if err != nil {
			return true, err
		}
		s.Flowing = v
	case "flow_params":
		v, err := coerceIntList(raw)
		if err != nil {
			return true, err
		}
		s.FlowParams = v
	case "music_on":
		v, err := coerceBool(raw)
		if err != nil {
			return true, err
		}
		s.MusicOn = v
	case "delayoff":
		v, err := coerceRangedInt(raw, 0, 1<<31-1)
		if err != nil {
			return true, err
		}
		s.DelayOff = v
	default:
		return false, nil
	}
	return true, nil
}

// coerceBool accepts the protocol's boolean spellings: "on"/"off" strings,
// "0"/"1" strings, JSON booleans, and 0/1 numbers.
func coerceBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "on", "true", "1":
			return true, nil
		case "off", "false", "0":
			return false, nil
		}
		return false, faults.Decode(fmt.Sprintf("cannot coerce %q to bool", v), nil)
	case float64:
		switch v {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
		return false, faults.Decode(fmt.Sprintf("cannot coerce %v to bool", v), nil)
	default:
		return false, faults.Decode(fmt.Sprintf("cannot coerce %T to bool", raw), nil)
	}
}

// coerceInt accepts integral JSON numbers and decimal strings.
func coerceInt(raw any) (int, error) {
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, faults.Decode(fmt.Sprintf("value %v is not an integer", v), nil)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, faults.Decode(fmt.Sprintf("cannot coerce %q to int", v), err)
		}
		return n, nil
	default:
		return 0, faults.Decode(fmt.Sprintf("cannot coerce %T to int", raw), nil)
	}
}

// coerceRangedInt coerces and then enforces a closed range, so an
// out-of-range inbound value is rejected before it ever reaches the state.
func coerceRangedInt(raw any, min, max int) (int, error) {
	v, err := coerceInt(raw)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, faults.Decode(fmt.Sprintf("value %d out of range [%d,%d]", v, min, max), nil)
	}
	return v, nil
}

// coerceIntList accepts the comma-joined integer list the flow_params
// property carries. The list length must be a multiple of 4 (one flow
// tuple per 4 entries).
func coerceIntList(raw any) ([]int, error) {
	str, ok := raw.(string)
	if !ok {
		return nil, faults.Decode(fmt.Sprintf("cannot coerce %T to int list", raw), nil)
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return nil, nil
	}
	parts := strings.Split(str, ",")
	if len(parts)%4 != 0 {
		return nil, faults.Decode(fmt.Sprintf("flow params length %d is not a multiple of 4", len(parts)), nil)
	}
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, faults.Decode(fmt.Sprintf("flow params entry %q is not an integer", p), err)
		}
		out[i] = n
	}
	return out, nil
}
