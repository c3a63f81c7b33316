package db

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/siklink/internal/telemetry"
)

// TelemetryRecord is a stored telemetry sample.
type TelemetryRecord struct {
	ID         int64     `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	telemetry.Sample
}

// RecordTelemetry stores one sample taken at time at.
func (db *DB) RecordTelemetry(at time.Time, s telemetry.Sample) error {
	_, err := db.Exec(`INSERT INTO telemetry_sample (
			recorded_at, local_rssi, remote_rssi, local_noise, remote_noise, packets_received,
			transmit_errors, receive_errors, serial_tx_overflow, serial_rx_overflow,
			corrected_errors, corrected_packets, radio_temperature, duty_cycle_offset
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		unixSeconds(at), s.LocalRssi, s.RemoteRssi, s.LocalNoise, s.RemoteNoise, s.PacketsReceived,
		s.TransmitErrors, s.ReceiveErrors, s.SerialTxOverflow, s.SerialRxOverflow,
		s.CorrectedErrors, s.CorrectedPackets, s.RadioTemperature, s.DutyCycleOffset)
	if err != nil {
		return fmt.Errorf("failed to record telemetry: %w", err)
	}
	return nil
}

// RecentTelemetry returns up to limit samples, oldest first.
func (db *DB) RecentTelemetry(limit int) ([]TelemetryRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT * FROM (
			SELECT id, recorded_at, local_rssi, remote_rssi, local_noise, remote_noise, packets_received,
			       transmit_errors, receive_errors, serial_tx_overflow, serial_rx_overflow,
			       corrected_errors, corrected_packets, radio_temperature, duty_cycle_offset
			FROM telemetry_sample ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query telemetry: %w", err)
	}
	defer rows.Close()

	var records []TelemetryRecord
	for rows.Next() {
		var r TelemetryRecord
		var at float64
		s := &r.Sample
		if err := rows.Scan(&r.ID, &at, &s.LocalRssi, &s.RemoteRssi, &s.LocalNoise, &s.RemoteNoise,
			&s.PacketsReceived, &s.TransmitErrors, &s.ReceiveErrors, &s.SerialTxOverflow,
			&s.SerialRxOverflow, &s.CorrectedErrors, &s.CorrectedPackets, &s.RadioTemperature,
			&s.DutyCycleOffset); err != nil {
			return nil, fmt.Errorf("failed to scan telemetry: %w", err)
		}
		r.RecordedAt = fromUnixSeconds(at)
		records = append(records, r)
	}
	return records, rows.Err()
}

// PruneTelemetry deletes samples recorded before cutoff and returns how many
// were removed.
func (db *DB) PruneTelemetry(cutoff time.Time) (int64, error) {
	result, err := db.Exec(`DELETE FROM telemetry_sample WHERE recorded_at < ?`, unixSeconds(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to prune telemetry: %w", err)
	}
	return result.RowsAffected()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*1e3).UTC()
}
