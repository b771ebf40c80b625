package protocol

import (
	"strconv"

	"github.com/lumenlab/lumen/internal/faults"
)

// Method names understood by the devices.
const (
	MethodSetPower   = "set_power"
	MethodToggle     = "toggle"
	MethodSetBright  = "set_bright"
	MethodSetRGB     = "set_rgb"
	MethodSetHSV     = "set_hsv"
	MethodSetCT      = "set_ct_abx"
	MethodSetName    = "set_name"
	MethodSetMusic   = "set_music"
	MethodGetProp    = "get_prop"
	MethodSetDefault = "set_default"
	MethodStartFlow  = "start_cf"
	MethodStopFlow   = "stop_cf"
	MethodCronAdd    = "cron_add"
	MethodCronDel    = "cron_del"

	// cronPowerOff is the only cron job type the devices implement.
	cronPowerOff = 0
)

// SetPower builds a power on/off command.
func SetPower(on bool, effect Effect, durationMs int) (*Command, error) {
	if err := validateEffect(effect, durationMs); err != nil {
		return nil, err
	}
	state := "off"
	if on {
		state = "on"
	}
	return newCommand(MethodSetPower, state, string(effect), durationMs), nil
}

// Toggle builds a power toggle command.
func Toggle() (*Command, error) {
	return newCommand(MethodToggle), nil
}

// SetBrightness builds a brightness command. Level is 1..100.
func SetBrightness(level int, effect Effect, durationMs int) (*Command, error) {
	if err := validateRange("brightness", level, MinBright, MaxBright); err != nil {
		return nil, err
	}
	if err := validateEffect(effect, durationMs); err != nil {
		return nil, err
	}
	return newCommand(MethodSetBright, level, string(effect), durationMs), nil
}

// SetRGB builds an RGB color command. The value is 1..16777215.
func SetRGB(rgb int, effect Effect, durationMs int) (*Command, error) {
	if err := validateRange("rgb", rgb, MinRGB, MaxRGB); err != nil {
		return nil, err
	}
	if err := validateEffect(effect, durationMs); err != nil {
		return nil, err
	}
	return newCommand(MethodSetRGB, rgb, string(effect), durationMs), nil
}

// SetHSV builds a hue/saturation command. Hue is 0..359, saturation 0..100.
func SetHSV(hue, sat int, effect Effect, durationMs int) (*Command, error) {
	if err := validateRange("hue", hue, 0, MaxHue); err != nil {
		return nil, err
	}
	if err := validateRange("saturation", sat, 0, MaxSat); err != nil {
		return nil, err
	}
	if err := validateEffect(effect, durationMs); err != nil {
		return nil, err
	}
	return newCommand(MethodSetHSV, hue, sat, string(effect), durationMs), nil
}

// SetColorTemp builds a color temperature command. The value is 1700..6500 K.
func SetColorTemp(kelvin int, effect Effect, durationMs int) (*Command, error) {
	if err := validateRange("color temperature", kelvin, MinColorTemp, MaxColorTemp); err != nil {
		return nil, err
	}
	if err := validateEffect(effect, durationMs); err != nil {
		return nil, err
	}
	return newCommand(MethodSetCT, kelvin, string(effect), durationMs), nil
}

// SetName builds a command that renames the device. The device echoes the
// new name back in a props push.
func SetName(name string) (*Command, error) {
	if name == "" {
		return nil, faults.Validationf("device name must not be empty")
	}
	return newCommand(MethodSetName, name), nil
}

// GetProps builds a property query for the named properties.
func GetProps(names ...string) (*Command, error) {
	if len(names) == 0 {
		return nil, faults.Validationf("get_prop requires at least one property name")
	}
	params := make([]any, len(names))
	for i, n := range names {
		if n == "" {
			return nil, faults.Validationf("property name must not be empty")
		}
		params[i] = n
	}
	return newCommand(MethodGetProp, params...), nil
}

// SetDefault builds a command that saves the current state as the device's
// power-on default.
func SetDefault() (*Command, error) {
	return newCommand(MethodSetDefault), nil
}

// DelayOff builds a command that schedules an automatic power-off after the
// given number of minutes.
func DelayOff(minutes int) (*Command, error) {
	if minutes < 1 {
		return nil, faults.Validationf("delay-off minutes %d out of range [1,)", minutes)
	}
	return newCommand(MethodCronAdd, cronPowerOff, minutes), nil
}

// CancelDelayOff builds a command that clears a scheduled power-off.
func CancelDelayOff() (*Command, error) {
	return newCommand(MethodCronDel, cronPowerOff), nil
}

// MusicOn builds the side-channel activation command. The host and port
// identify the rendezvous listener the device should connect back to; the
// port travels as a string on the wire.
func MusicOn(host string, port int) (*Command, error) {
	if host == "" {
		return nil, faults.Validationf("music host must not be empty")
	}
	if err := validateRange("music port", port, 1, 65535); err != nil {
		return nil, err
	}
	return newCommand(MethodSetMusic, 1, host, strconv.Itoa(port)), nil
}

// MusicOff builds the side-channel deactivation command.
func MusicOff() (*Command, error) {
	return newCommand(MethodSetMusic, 0), nil
}
