package manifest

import (
	"database/sql"
	"fmt"
	"time"
)

// Check is one recorded readiness pass.
type Check struct {
	ID           int64
	RunID        string
	DeviceSerial string
	CheckedAt    time.Time
	Ready        bool
	Reason       string
	BatteryLevel *int
	Temperature  *float64
	PingAddress  string
	RTT          float64
}

// Artifact is a file collected from a device.
type Artifact struct {
	ID           int64
	RunID        string
	DeviceSerial string
	Kind         string // "screenshot", "video", "pcap"
	LocalPath    string
	Size         int64
	CreatedAt    time.Time
}

// RecordCheck stores a readiness pass and returns its row id.
func (m *DB) RecordCheck(c Check) (int64, error) {
	if c.CheckedAt.IsZero() {
		c.CheckedAt = time.Now()
	}
	var level sql.NullInt64
	if c.BatteryLevel != nil {
		level = sql.NullInt64{Int64: int64(*c.BatteryLevel), Valid: true}
	}
	var temp sql.NullFloat64
	if c.Temperature != nil {
		temp = sql.NullFloat64{Float64: *c.Temperature, Valid: true}
	}
	res, err := m.db.Exec(
		`INSERT INTO checks (run_id, device_serial, checked_at, ready, reason, battery_level, temperature, ping_address, rtt_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.RunID, c.DeviceSerial, c.CheckedAt.UnixNano(), c.Ready, c.Reason, level, temp, c.PingAddress, c.RTT,
	)
	if err != nil {
		return 0, fmt.Errorf("record check: %w", err)
	}
	return res.LastInsertId()
}

// RecentChecks returns up to limit checks for a device, newest first.
// An empty serial returns checks for every device.
func (m *DB) RecentChecks(deviceSerial string, limit int) ([]Check, error) {
	rows, err := m.db.Query(
		`SELECT id, run_id, device_serial, checked_at, ready, reason, battery_level, temperature, ping_address, rtt_ms
		 FROM checks
		 WHERE ? = '' OR device_serial = ?
		 ORDER BY checked_at DESC, id DESC
		 LIMIT ?`,
		deviceSerial, deviceSerial, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get checks: %w", err)
	}
	defer rows.Close()

	var checks []Check
	for rows.Next() {
		var c Check
		var at int64
		var level sql.NullInt64
		var temp sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.RunID, &c.DeviceSerial, &at, &c.Ready, &c.Reason, &level, &temp, &c.PingAddress, &c.RTT); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		c.CheckedAt = time.Unix(0, at)
		if level.Valid {
			n := int(level.Int64)
			c.BatteryLevel = &n
		}
		if temp.Valid {
			t := temp.Float64
			c.Temperature = &t
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// RecordArtifact stores a collected artifact. Recording the same local
// path again replaces the earlier row.
func (m *DB) RecordArtifact(a Artifact) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := m.db.Exec(
		`INSERT INTO artifacts (run_id, device_serial, kind, local_path, size, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(local_path) DO UPDATE SET
		   run_id = excluded.run_id,
		   device_serial = excluded.device_serial,
		   kind = excluded.kind,
		   size = excluded.size,
		   created_at = excluded.created_at`,
		a.RunID, a.DeviceSerial, a.Kind, a.LocalPath, a.Size, a.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record artifact: %w", err)
	}
	return nil
}

// Artifacts returns the artifacts collected from a device, newest first.
func (m *DB) Artifacts(deviceSerial string) ([]Artifact, error) {
	rows, err := m.db.Query(
		`SELECT id, run_id, device_serial, kind, local_path, size, created_at
		 FROM artifacts
		 WHERE device_serial = ?
		 ORDER BY created_at DESC, id DESC`,
		deviceSerial,
	)
	if err != nil {
		return nil, fmt.Errorf("get artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		var at int64
		if err := rows.Scan(&a.ID, &a.RunID, &a.DeviceSerial, &a.Kind, &a.LocalPath, &a.Size, &at); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.CreatedAt = time.Unix(0, at)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

// DeviceStats summarizes the manifest for one device.
type DeviceStats struct {
	Checks      int
	ReadyChecks int
	Artifacts   int
}

// GetDeviceStats returns manifest statistics for a device.
func (m *DB) GetDeviceStats(deviceSerial string) (DeviceStats, error) {
	var stats DeviceStats
	err := m.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(ready), 0) FROM checks WHERE device_serial = ?`, deviceSerial,
	).Scan(&stats.Checks, &stats.ReadyChecks)
	if err != nil {
		return stats, err
	}
	err = m.db.QueryRow(
		`SELECT COUNT(*) FROM artifacts WHERE device_serial = ?`, deviceSerial,
	).Scan(&stats.Artifacts)
	if err != nil {
		return stats, err
	}
	return stats, nil
}
