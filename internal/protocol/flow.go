package protocol

import (
	"strconv"
	"strings"

	"github.com/lumenlab/lumen/internal/faults"
)

// FlowMode selects what a single flow-state entry changes.
type FlowMode int

const (
	// FlowModeColor transitions to an RGB color.
	FlowModeColor FlowMode = 1
	// FlowModeColorTemp transitions to a color temperature.
	FlowModeColorTemp FlowMode = 2
	// FlowModeSleep holds the current state for the entry's duration.
	FlowModeSleep FlowMode = 7
)

// FlowAction selects what the light does when a flow program ends.
type FlowAction int

const (
	// FlowRecover restores the state from before the flow started.
	FlowRecover FlowAction = 0
	// FlowStay keeps the state of the last flow entry.
	FlowStay FlowAction = 1
	// FlowOff turns the light off.
	FlowOff FlowAction = 2
)

// FlowTransition accumulates an ordered sequence of flow-state entries.
// Each entry is a (duration, mode, value, brightness) tuple; Add validates
// the tuple against the protocol ranges before accepting it.
type FlowTransition struct {
	steps []flowStep
}

type flowStep struct {
	durationMs int
	mode       FlowMode
	value      int
	brightness int
}

// Add appends one flow-state entry. For FlowModeSleep the value and
// brightness are unused and forced to zero on the wire.
func (f *FlowTransition) Add(durationMs int, mode FlowMode, value, brightness int) error {
	if durationMs < MinFlowDuration {
		return faults.Validationf("flow entry duration %dms below %dms floor", durationMs, MinFlowDuration)
	}
	switch mode {
	case FlowModeColor:
		if err := validateRange("flow rgb value", value, MinRGB, MaxRGB); err != nil {
			return err
		}
	case FlowModeColorTemp:
		if err := validateRange("flow color temperature", value, MinColorTemp, MaxColorTemp); err != nil {
			return err
		}
	case FlowModeSleep:
		value = 0
		brightness = 0
	default:
		return faults.Validationf("flow mode %d not one of {1,2,7}", int(mode))
	}
	if mode != FlowModeSleep {
		if err := validateRange("flow brightness", brightness, MinBright, MaxBright); err != nil {
			return err
		}
	}
	f.steps = append(f.steps, flowStep{durationMs, mode, value, brightness})
	return nil
}

// Len returns the number of accumulated entries.
func (f *FlowTransition) Len() int {
	return len(f.steps)
}

// Expression serializes the entries into the comma-joined integer list the
// start_cf method expects.
func (f *FlowTransition) Expression() string {
	parts := make([]string, 0, len(f.steps)*4)
	for _, s := range f.steps {
		parts = append(parts,
			strconv.Itoa(s.durationMs),
			strconv.Itoa(int(s.mode)),
			strconv.Itoa(s.value),
			strconv.Itoa(s.brightness),
		)
	}
	return strings.Join(parts, ",")
}

// StartFlow builds a flow program command. Count is the number of state
// changes to run before the action applies; it must be at least the number
// of accumulated entries.
func StartFlow(count int, action FlowAction, flow *FlowTransition) (*Command, error) {
	if flow == nil || flow.Len() == 0 {
		return nil, faults.Validationf("flow program has no entries")
	}
	if count < flow.Len() {
		return nil, faults.Validationf("flow repeat count %d below entry count %d", count, flow.Len())
	}
	switch action {
	case FlowRecover, FlowStay, FlowOff:
	default:
		return nil, faults.Validationf("flow action %d not one of {0,1,2}", int(action))
	}
	return newCommand(MethodStartFlow, count, int(action), flow.Expression()), nil
}

// StopFlow builds a command that stops a running flow program.
func StopFlow() (*Command, error) {
	return newCommand(MethodStopFlow), nil
}
