package params

import (
	"fmt"
	"slices"
)

// Allowed values accepted by the firmware for the enumerated parameters.
var (
	// AirRates are the AIR_SPEED settings in kbit/s.
	AirRates = []int{2, 4, 8, 16, 19, 24, 32, 48, 64, 96, 128, 192, 250}
	// SerialRates are the SERIAL_SPEED settings, baud rate / 1000.
	SerialRates = []int{1, 2, 4, 9, 19, 38, 57, 115, 230}
	// AirPower are the TXPOWER settings in dBm.
	AirPower = []int{1, 2, 5, 8, 11, 14, 17, 20}
	// MavlinkFrames are the MAVLINK settings: raw, MAVLink, low latency.
	MavlinkFrames = []int{0, 1, 2}
)

type bounds struct{ min, max int }

var ranges = map[ID]bounds{
	NetID:     {0, 499},
	DutyCycle: {1, 100},
	LbtRssi:   {0, 255},
	MaxWindow: {33, 131},
}

var enumerations = map[ID][]int{
	SerialSpeed: SerialRates,
	AirSpeed:    AirRates,
	TxPower:     AirPower,
	Mavlink:     MavlinkFrames,
}

// Validate checks a value a user wants to write. Values read from the radio
// are never validated; the radio is the authority on what it stores.
func Validate(id ID, v int) error {
	def, err := Lookup(id)
	if err != nil {
		return err
	}
	if def.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, def.Name)
	}
	if def.Kind == KindBool {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: %s must be 0 or 1, got %d", ErrInvalidValue, def.Name, v)
		}
		return nil
	}
	if allowed, ok := enumerations[id]; ok && !slices.Contains(allowed, v) {
		return fmt.Errorf("%w: %s must be one of %v, got %d", ErrInvalidValue, def.Name, allowed, v)
	}
	if r, ok := ranges[id]; ok && (v < r.min || v > r.max) {
		return fmt.Errorf("%w: %s must be between %d and %d, got %d", ErrInvalidValue, def.Name, r.min, r.max, v)
	}
	if v < 0 {
		return fmt.Errorf("%w: %s must be non-negative, got %d", ErrInvalidValue, def.Name, v)
	}
	return nil
}
