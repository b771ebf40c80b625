package protocol

import (
	"encoding/json"

	"github.com/lumenlab/lumen/internal/faults"
)

// Effect selects how a light transitions to a commanded state.
type Effect string

const (
	// EffectSudden applies the new state immediately.
	EffectSudden Effect = "sudden"
	// EffectSmooth fades to the new state over the command's duration.
	EffectSmooth Effect = "smooth"
)

// Closed protocol ranges. A value outside its range is rejected at build
// time; no partially-valid command is ever encodable.
const (
	MinBright = 1
	MaxBright = 100

	MinColorTemp = 1700
	MaxColorTemp = 6500

	MinRGB = 1
	MaxRGB = 0xFFFFFF

	MaxHue = 359
	MaxSat = 100

	// MinDuration is the floor for smooth transition durations, in ms.
	MinDuration = 30
	// MinFlowDuration is the floor for flow-state entry durations, in ms.
	MinFlowDuration = 50
)

// Command is one control-protocol request. The ID is assigned by the owning
// device just before the command goes on the wire; builders leave it zero.
type Command struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

// Encode serializes the command as a newline-terminated JSON object, the
// exact wire form the devices accept.
func (c *Command) Encode() ([]byte, error) {
	if c.Params == nil {
		c.Params = []any{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, faults.Decode("failed to marshal command", err)
	}
	return append(data, '\r', '\n'), nil
}

// newCommand builds a Command with a non-nil params slice so the wire form
// always carries "params":[].
func newCommand(method string, params ...any) *Command {
	if params == nil {
		params = []any{}
	}
	return &Command{Method: method, Params: params}
}

// validateRange checks a closed numeric range and reports the offending
// argument by name.
func validateRange(name string, value, min, max int) error {
	if value < min || value > max {
		return faults.Validationf("%s %d out of range [%d,%d]", name, value, min, max)
	}
	return nil
}

// validateEffect checks the effect name and its duration. Sudden commands
// ignore the duration on the device side, but a supplied non-zero duration
// is still held to the floor so callers catch mistakes early.
func validateEffect(effect Effect, durationMs int) error {
	switch effect {
	case EffectSudden, EffectSmooth:
	default:
		return faults.Validationf("unknown effect %q", string(effect))
	}
	if effect == EffectSmooth || durationMs != 0 {
		if durationMs < MinDuration {
			return faults.Validationf("duration %dms below %dms floor", durationMs, MinDuration)
		}
	}
	return nil
}
