package params

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrUnknownBoardFrequency is returned for board frequency codes missing from
// the lookup table.
var ErrUnknownBoardFrequency = errors.New("unknown board frequency code")

// Board frequency codes reported by ATI3.
const (
	BoardFreq433  = 0x43
	BoardFreq470  = 0x47
	BoardFreq868  = 0x86
	BoardFreq915  = 0x91
	BoardFreqNone = 0xF0
)

var boardFrequencies = map[int]string{
	BoardFreq433:  "433",
	BoardFreq470:  "470",
	BoardFreq868:  "868",
	BoardFreq915:  "915",
	BoardFreqNone: "NONE",
}

// BoardFrequencyLabel maps a board frequency code to its band label.
func BoardFrequencyLabel(code int) (string, error) {
	label, ok := boardFrequencies[code]
	if !ok {
		return "", fmt.Errorf("%w: 0x%02X", ErrUnknownBoardFrequency, code)
	}
	return label, nil
}

// ParseBoardFrequency parses the ATI3 reply, which the firmware prints in
// decimal, and maps it to a band label. A "0x" prefix is accepted for hex.
func ParseBoardFrequency(reply string) (string, error) {
	text := strings.TrimSpace(reply)
	base := 10
	if rest, ok := strings.CutPrefix(strings.ToLower(text), "0x"); ok {
		text, base = rest, 16
	}
	code, err := strconv.ParseInt(text, base, 32)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownBoardFrequency, reply)
	}
	return BoardFrequencyLabel(int(code))
}
