package db

import (
	"database/sql"
	"fmt"

	"github.com/banshee-data/siklink/internal/serialmux"
)

// SerialConfig is a saved serial port configuration for a radio.
type SerialConfig struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PortPath    string `json:"port_path"`
	BaudRate    int    `json:"baud_rate"`
	DataBits    int    `json:"data_bits"`
	StopBits    int    `json:"stop_bits"`
	Parity      string `json:"parity"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// PortOptions returns the line settings of c.
func (c SerialConfig) PortOptions() serialmux.PortOptions {
	return serialmux.PortOptions{
		BaudRate: c.BaudRate,
		DataBits: c.DataBits,
		StopBits: c.StopBits,
		Parity:   c.Parity,
	}
}

const serialConfigColumns = `id, name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSerialConfig(s scanner) (SerialConfig, error) {
	var c SerialConfig
	var enabled int
	err := s.Scan(&c.ID, &c.Name, &c.PortPath, &c.BaudRate, &c.DataBits, &c.StopBits,
		&c.Parity, &enabled, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	c.Enabled = enabled == 1
	return c, err
}

func (db *DB) querySerialConfigs(query string, args ...any) ([]SerialConfig, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query serial configs: %w", err)
	}
	defer rows.Close()

	var configs []SerialConfig
	for rows.Next() {
		c, err := scanSerialConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan serial config: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// GetSerialConfigs returns all serial configurations, oldest first.
func (db *DB) GetSerialConfigs() ([]SerialConfig, error) {
	return db.querySerialConfigs(`SELECT ` + serialConfigColumns + ` FROM serial_config ORDER BY id ASC`)
}

// GetEnabledSerialConfigs returns the enabled serial configurations.
func (db *DB) GetEnabledSerialConfigs() ([]SerialConfig, error) {
	return db.querySerialConfigs(`SELECT ` + serialConfigColumns + ` FROM serial_config WHERE enabled = 1 ORDER BY id ASC`)
}

// GetSerialConfig returns one configuration, or nil if id does not exist.
func (db *DB) GetSerialConfig(id int) (*SerialConfig, error) {
	row := db.QueryRow(`SELECT `+serialConfigColumns+` FROM serial_config WHERE id = ?`, id)
	c, err := scanSerialConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get serial config: %w", err)
	}
	return &c, nil
}

// CreateSerialConfig stores c after normalising its line settings and
// returns the new id.
func (db *DB) CreateSerialConfig(c *SerialConfig) (int64, error) {
	opts, err := c.PortOptions().Normalize()
	if err != nil {
		return 0, fmt.Errorf("invalid serial config: %w", err)
	}
	enabled := 0
	if c.Enabled {
		enabled = 1
	}
	result, err := db.Exec(`INSERT INTO serial_config (name, port_path, baud_rate, data_bits, stop_bits, parity, enabled, description)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.PortPath, opts.BaudRate, opts.DataBits, opts.StopBits, opts.Parity, enabled, c.Description)
	if err != nil {
		return 0, fmt.Errorf("failed to create serial config: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// UpdateSerialConfig overwrites the configuration with c.ID.
func (db *DB) UpdateSerialConfig(c *SerialConfig) error {
	opts, err := c.PortOptions().Normalize()
	if err != nil {
		return fmt.Errorf("invalid serial config: %w", err)
	}
	enabled := 0
	if c.Enabled {
		enabled = 1
	}
	result, err := db.Exec(`UPDATE serial_config
	          SET name = ?, port_path = ?, baud_rate = ?, data_bits = ?, stop_bits = ?,
	              parity = ?, enabled = ?, description = ?
	          WHERE id = ?`,
		c.Name, c.PortPath, opts.BaudRate, opts.DataBits, opts.StopBits, opts.Parity, enabled, c.Description, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update serial config: %w", err)
	}
	return expectOneRow(result, "serial config", c.ID)
}

// DeleteSerialConfig deletes the configuration with id.
func (db *DB) DeleteSerialConfig(id int) error {
	result, err := db.Exec(`DELETE FROM serial_config WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete serial config: %w", err)
	}
	return expectOneRow(result, "serial config", id)
}

func expectOneRow(result sql.Result, what string, id int) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s with ID %d not found", what, id)
	}
	return nil
}
