package simulator

import (
	"context"
	"math"
	"time"

	"github.com/banshee-data/siklink/internal/telemetry"
)

// Run emits a synthetic telemetry line every interval while RSSI reporting
// is enabled, until ctx is cancelled.
func (r *Radio) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	var n int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.EmitTelemetry(SyntheticSample(n)) {
				n++
			}
		}
	}
}

// SyntheticSample returns the n-th sample of a slowly fading link.
func SyntheticSample(n int) telemetry.Sample {
	phase := float64(n) / 10
	fade := int(math.Round(12 * math.Sin(phase)))
	return telemetry.Sample{
		LocalRssi:        200 + fade,
		RemoteRssi:       195 - fade,
		LocalNoise:       45 + n%5,
		RemoteNoise:      40 + (n+2)%5,
		PacketsReceived:  n * 3,
		TransmitErrors:   n / 50,
		ReceiveErrors:    n / 40,
		CorrectedErrors:  n / 20,
		CorrectedPackets: n / 25,
		RadioTemperature: 38 + int(math.Round(2*math.Cos(phase/4))),
		DutyCycleOffset:  0,
	}
}
