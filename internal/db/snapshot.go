package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/siklink/internal/params"
)

// ParamSnapshot is a stored copy of a radio's identification and parameters.
type ParamSnapshot struct {
	ID             int                   `json:"id"`
	Label          string                `json:"label"`
	PortPath       string                `json:"port_path"`
	Identification params.Identification `json:"identification"`
	Values         params.Values         `json:"values"`
	CreatedAt      time.Time             `json:"created_at"`
}

// Parameters returns the snapshot values keyed by firmware name.
func (s ParamSnapshot) Parameters() map[string]int {
	out := make(map[string]int, params.Count)
	for _, def := range params.Definitions() {
		out[def.Name] = s.Values[def.ID]
	}
	return out
}

// SaveParamSnapshot stores the current contents of cfg and returns the new id.
func (db *DB) SaveParamSnapshot(label, portPath string, cfg *params.Config) (int64, error) {
	ident, err := json.Marshal(cfg.Identification())
	if err != nil {
		return 0, err
	}
	values, err := params.MarshalValues(cfg.Values())
	if err != nil {
		return 0, err
	}
	result, err := db.Exec(`INSERT INTO param_snapshot (label, port_path, identification, params) VALUES (?, ?, ?, ?)`,
		label, portPath, string(ident), string(values))
	if err != nil {
		return 0, fmt.Errorf("failed to save parameter snapshot: %w", err)
	}
	return result.LastInsertId()
}

const snapshotColumns = `id, label, port_path, identification, params, created_at`

func scanSnapshot(s scanner) (ParamSnapshot, error) {
	var snap ParamSnapshot
	var ident, values string
	var created int64
	if err := s.Scan(&snap.ID, &snap.Label, &snap.PortPath, &ident, &values, &created); err != nil {
		return snap, err
	}
	if err := json.Unmarshal([]byte(ident), &snap.Identification); err != nil {
		return snap, fmt.Errorf("snapshot %d identification: %w", snap.ID, err)
	}
	v, err := params.UnmarshalValues([]byte(values))
	if err != nil {
		return snap, fmt.Errorf("snapshot %d params: %w", snap.ID, err)
	}
	snap.Values = v
	snap.CreatedAt = time.Unix(created, 0).UTC()
	return snap, nil
}

// ListParamSnapshots returns up to limit snapshots, newest first.
func (db *DB) ListParamSnapshots(limit int) ([]ParamSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT `+snapshotColumns+` FROM param_snapshot ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query parameter snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []ParamSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// GetParamSnapshot returns one snapshot, or nil if id does not exist.
func (db *DB) GetParamSnapshot(id int) (*ParamSnapshot, error) {
	snap, err := scanSnapshot(db.QueryRow(`SELECT `+snapshotColumns+` FROM param_snapshot WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parameter snapshot: %w", err)
	}
	return &snap, nil
}
