package manifest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite manifest of readiness checks and collected
// artifacts.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the manifest database.
func Open(configDir string) (*DB, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dbPath := filepath.Join(configDir, "manifest.db")
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Enable WAL mode for better concurrent access
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	m := &DB{db: sqlDB, path: dbPath}
	if err := m.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return m, nil
}

// Close closes the database.
func (m *DB) Close() error {
	return m.db.Close()
}

// Path returns the path to the manifest database file.
func (m *DB) Path() string {
	return m.path
}

func (m *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		device_serial TEXT NOT NULL,
		checked_at INTEGER NOT NULL,
		ready INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		battery_level INTEGER,
		temperature REAL,
		ping_address TEXT NOT NULL DEFAULT '',
		rtt_ms REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		device_serial TEXT NOT NULL,
		kind TEXT NOT NULL,
		local_path TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		UNIQUE(local_path)
	);

	CREATE INDEX IF NOT EXISTS idx_checks_device ON checks(device_serial, checked_at);
	CREATE INDEX IF NOT EXISTS idx_artifacts_device ON artifacts(device_serial);
	`
	if _, err := m.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
