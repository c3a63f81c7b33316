// Package telemetry parses the periodic link-quality lines a SiK radio emits
// while RSSI reporting is enabled, and summarises windows of them.
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LinePrefix starts every telemetry line.
const LinePrefix = "L/R RSSI:"

// ErrMalformed is wrapped by every parse failure.
var ErrMalformed = errors.New("malformed telemetry line")

// Sample is one parsed telemetry line.
//
// Line format:
//
//	L/R RSSI: 208/217  L/R noise: 49/30 pkts: 5  txe=1 rxe=2 stx=3 srx=4 ecc=5/6 temp=42 dco=7
type Sample struct {
	LocalRssi        int `json:"local_rssi"`
	RemoteRssi       int `json:"remote_rssi"`
	LocalNoise       int `json:"local_noise"`
	RemoteNoise      int `json:"remote_noise"`
	PacketsReceived  int `json:"packets_received"`
	TransmitErrors   int `json:"transmit_errors"`
	ReceiveErrors    int `json:"receive_errors"`
	SerialTxOverflow int `json:"serial_tx_overflow"`
	SerialRxOverflow int `json:"serial_rx_overflow"`
	CorrectedErrors  int `json:"corrected_errors"`
	CorrectedPackets int `json:"corrected_packets"`
	RadioTemperature int `json:"radio_temperature"`
	DutyCycleOffset  int `json:"duty_cycle_offset"`
}

// token positions after splitting on whitespace
const (
	tokLR1 = iota
	tokRSSILabel
	tokRSSI
	tokLR2
	tokNoiseLabel
	tokNoise
	tokPktsLabel
	tokPkts
	tokTxe
	tokRxe
	tokStx
	tokSrx
	tokEcc
	tokTemp
	tokDco
	tokenCount
)

// IsTelemetryLine reports whether line looks like a telemetry line. It does
// not guarantee that Parse will succeed.
func IsTelemetryLine(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \r\n"), LinePrefix)
}

// Parse extracts a Sample from one telemetry line. Parsing is positional; any
// deviation from the fixed grammar returns an error wrapping ErrMalformed.
func Parse(line string) (Sample, error) {
	var s Sample

	tokens := strings.Fields(line)
	if len(tokens) != tokenCount {
		return s, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformed, tokenCount, len(tokens))
	}

	for _, label := range []struct {
		pos  int
		want string
	}{
		{tokLR1, "L/R"},
		{tokRSSILabel, "RSSI:"},
		{tokLR2, "L/R"},
		{tokNoiseLabel, "noise:"},
		{tokPktsLabel, "pkts:"},
	} {
		if tokens[label.pos] != label.want {
			return s, fmt.Errorf("%w: field %d is %q, expected %q", ErrMalformed, label.pos, tokens[label.pos], label.want)
		}
	}

	var err error
	if s.LocalRssi, s.RemoteRssi, err = parsePair(tokens[tokRSSI]); err != nil {
		return s, fmt.Errorf("rssi: %w", err)
	}
	if s.LocalNoise, s.RemoteNoise, err = parsePair(tokens[tokNoise]); err != nil {
		return s, fmt.Errorf("noise: %w", err)
	}
	if s.PacketsReceived, err = parseInt(tokens[tokPkts]); err != nil {
		return s, fmt.Errorf("pkts: %w", err)
	}

	fields := []struct {
		pos   int
		key   string
		value *int
	}{
		{tokTxe, "txe", &s.TransmitErrors},
		{tokRxe, "rxe", &s.ReceiveErrors},
		{tokStx, "stx", &s.SerialTxOverflow},
		{tokSrx, "srx", &s.SerialRxOverflow},
		{tokTemp, "temp", &s.RadioTemperature},
		{tokDco, "dco", &s.DutyCycleOffset},
	}
	for _, f := range fields {
		raw, err := keyValue(tokens[f.pos], f.key)
		if err != nil {
			return s, err
		}
		if *f.value, err = parseInt(raw); err != nil {
			return s, fmt.Errorf("%s: %w", f.key, err)
		}
	}

	raw, err := keyValue(tokens[tokEcc], "ecc")
	if err != nil {
		return s, err
	}
	if s.CorrectedErrors, s.CorrectedPackets, err = parsePair(raw); err != nil {
		return s, fmt.Errorf("ecc: %w", err)
	}

	return s, nil
}

// keyValue splits "key=value" and checks the key.
func keyValue(token, key string) (string, error) {
	k, v, ok := strings.Cut(token, "=")
	if !ok || k != key {
		return "", fmt.Errorf("%w: expected %s=<n>, got %q", ErrMalformed, key, token)
	}
	return v, nil
}

// parsePair parses "a/b".
func parsePair(token string) (int, int, error) {
	a, b, ok := strings.Cut(token, "/")
	if !ok {
		return 0, 0, fmt.Errorf("%w: expected <a>/<b>, got %q", ErrMalformed, token)
	}
	first, err := parseInt(a)
	if err != nil {
		return 0, 0, err
	}
	second, err := parseInt(b)
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

func parseInt(token string) (int, error) {
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformed, token)
	}
	return v, nil
}

// String formats s the way the firmware prints it.
func (s Sample) String() string {
	return fmt.Sprintf("L/R RSSI: %d/%d  L/R noise: %d/%d pkts: %d  txe=%d rxe=%d stx=%d srx=%d ecc=%d/%d temp=%d dco=%d",
		s.LocalRssi, s.RemoteRssi, s.LocalNoise, s.RemoteNoise, s.PacketsReceived,
		s.TransmitErrors, s.ReceiveErrors, s.SerialTxOverflow, s.SerialRxOverflow,
		s.CorrectedErrors, s.CorrectedPackets, s.RadioTemperature, s.DutyCycleOffset)
}
