package telemetry

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats describes one metric over a set of samples.
type Stats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary aggregates a set of samples for link-quality reporting.
type Summary struct {
	Count       int   `json:"count"`
	LocalRssi   Stats `json:"local_rssi"`
	RemoteRssi  Stats `json:"remote_rssi"`
	LocalNoise  Stats `json:"local_noise"`
	RemoteNoise Stats `json:"remote_noise"`
	// LocalMargin and RemoteMargin are mean RSSI minus mean noise floor.
	LocalMargin  float64 `json:"local_margin"`
	RemoteMargin float64 `json:"remote_margin"`
	// Error counters are cumulative on the radio; the deltas cover the window.
	TransmitErrorDelta  int `json:"transmit_error_delta"`
	ReceiveErrorDelta   int `json:"receive_error_delta"`
	CorrectedErrorDelta int `json:"corrected_error_delta"`
	LastTemperature     int `json:"last_temperature"`
}

// Summarize computes a Summary. samples must be ordered oldest first. An empty
// input yields a zero Summary.
func Summarize(samples []Sample) Summary {
	var sum Summary
	if len(samples) == 0 {
		return sum
	}
	sum.Count = len(samples)

	column := func(get func(Sample) int) []float64 {
		out := make([]float64, len(samples))
		for i, s := range samples {
			out[i] = float64(get(s))
		}
		return out
	}

	sum.LocalRssi = describe(column(func(s Sample) int { return s.LocalRssi }))
	sum.RemoteRssi = describe(column(func(s Sample) int { return s.RemoteRssi }))
	sum.LocalNoise = describe(column(func(s Sample) int { return s.LocalNoise }))
	sum.RemoteNoise = describe(column(func(s Sample) int { return s.RemoteNoise }))
	sum.LocalMargin = sum.LocalRssi.Mean - sum.LocalNoise.Mean
	sum.RemoteMargin = sum.RemoteRssi.Mean - sum.RemoteNoise.Mean

	first, last := samples[0], samples[len(samples)-1]
	sum.TransmitErrorDelta = last.TransmitErrors - first.TransmitErrors
	sum.ReceiveErrorDelta = last.ReceiveErrors - first.ReceiveErrors
	sum.CorrectedErrorDelta = last.CorrectedErrors - first.CorrectedErrors
	sum.LastTemperature = last.RadioTemperature

	return sum
}

func describe(x []float64) Stats {
	mean, std := stat.MeanStdDev(x, nil)
	if math.IsNaN(std) {
		// a single observation has no spread
		std = 0
	}
	return Stats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(x),
		Max:    floats.Max(x),
	}
}
