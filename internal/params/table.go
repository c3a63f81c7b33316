// Package params describes the SiK radio's EEPROM parameter table and holds
// the in-memory configuration snapshot exchanged with the radio.
//
// Parameter layout follows the firmware's parameters.h: sixteen entries
// indexed 0..15, where index 0 (FORMAT) identifies the EEPROM layout and is
// never written back.
package params

import (
	"errors"
	"fmt"
	"strings"
)

// ID is the firmware's numeric parameter index.
type ID uint8

const (
	Format ID = iota
	SerialSpeed
	AirSpeed
	NetID
	TxPower
	ECC
	Mavlink
	OppResend
	MinFreq
	MaxFreq
	NumChannels
	DutyCycle
	LbtRssi
	Manchester
	RtsCts
	MaxWindow
)

// Count is the number of parameters in the table.
const Count = 16

// Kind is the value type of a parameter.
type Kind int

const (
	KindInt Kind = iota
	KindBool
)

func (k Kind) String() string {
	if k == KindBool {
		return "bool"
	}
	return "int"
}

var (
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrReadOnly         = errors.New("parameter is read-only")
	ErrInvalidValue     = errors.New("invalid parameter value")
)

// Definition describes one table entry.
type Definition struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Kind     Kind   `json:"kind"`
	Default  int    `json:"default"`
	ReadOnly bool   `json:"read_only"`
}

var table = [Count]Definition{
	{ID: Format, Name: "FORMAT", Kind: KindInt, Default: 25, ReadOnly: true},
	{ID: SerialSpeed, Name: "SERIAL_SPEED", Kind: KindInt, Default: 57},
	{ID: AirSpeed, Name: "AIR_SPEED", Kind: KindInt, Default: 64},
	{ID: NetID, Name: "NETID", Kind: KindInt, Default: 25},
	{ID: TxPower, Name: "TXPOWER", Kind: KindInt, Default: 20},
	{ID: ECC, Name: "ECC", Kind: KindBool, Default: 0},
	{ID: Mavlink, Name: "MAVLINK", Kind: KindInt, Default: 1},
	{ID: OppResend, Name: "OPPRESEND", Kind: KindBool, Default: 0},
	{ID: MinFreq, Name: "MIN_FREQ", Kind: KindInt, Default: 0},
	{ID: MaxFreq, Name: "MAX_FREQ", Kind: KindInt, Default: 0},
	{ID: NumChannels, Name: "NUM_CHANNELS", Kind: KindInt, Default: 0},
	{ID: DutyCycle, Name: "DUTY_CYCLE", Kind: KindInt, Default: 100},
	{ID: LbtRssi, Name: "LBT_RSSI", Kind: KindInt, Default: 0},
	{ID: Manchester, Name: "MANCHESTER", Kind: KindBool, Default: 0},
	{ID: RtsCts, Name: "RTSCTS", Kind: KindBool, Default: 0},
	{ID: MaxWindow, Name: "MAX_WINDOW", Kind: KindInt, Default: 131},
}

// String returns the firmware name of the parameter.
func (id ID) String() string {
	if int(id) < Count {
		return table[id].Name
	}
	return fmt.Sprintf("S%d", uint8(id))
}

// Lookup returns the definition for id.
func Lookup(id ID) (Definition, error) {
	if int(id) >= Count {
		return Definition{}, fmt.Errorf("%w: S%d", ErrUnknownParameter, uint8(id))
	}
	return table[id], nil
}

// ByName returns the definition with the given firmware name, matched
// case-insensitively.
func ByName(name string) (Definition, error) {
	for _, def := range table {
		if strings.EqualFold(def.Name, name) {
			return def, nil
		}
	}
	return Definition{}, fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

// Definitions returns the full table in index order.
func Definitions() []Definition {
	out := make([]Definition, Count)
	copy(out, table[:])
	return out
}

// Writable returns the indices written back to the radio, in EEPROM order.
func Writable() []ID {
	ids := make([]ID, 0, Count-1)
	for _, def := range table {
		if !def.ReadOnly {
			ids = append(ids, def.ID)
		}
	}
	return ids
}

// Defaults returns the firmware default values.
func Defaults() Values {
	var v Values
	for i, def := range table {
		v[i] = def.Default
	}
	return v
}
