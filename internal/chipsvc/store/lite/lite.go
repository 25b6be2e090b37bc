// Package lite is the embedded SQLite implementation of the chip stores,
// used for single-node deployments and tests.
package lite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle and exposes one store per table.
type DB struct {
	db *sql.DB

	Chips     *ChipStore
	Users     *UserStore
	Companies *CompanyStore
	Scans     *ScanStore
	Leads     *LeadStore
}

// Open opens (creating if needed) the database at path and migrates it.
// SQLite serializes writers, so the pool is held to one connection.
// Pragmas ride in the DSN so every connection the pool opens gets them.
func Open(ctx context.Context, path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	d := &DB{
		db:        sqldb,
		Chips:     &ChipStore{db: sqldb},
		Users:     &UserStore{db: sqldb},
		Companies: &CompanyStore{db: sqldb},
		Scans:     &ScanStore{db: sqldb},
		Leads:     &LeadStore{db: sqldb},
	}
	if err := d.Migrate(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}

	log.WithField("path", path).Info("sqlite store initialized")
	return d, nil
}

var pragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Timestamps are stored as unix nanoseconds.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id               TEXT PRIMARY KEY,
		auth_subject     TEXT NOT NULL UNIQUE,
		name             TEXT NOT NULL DEFAULT '',
		slug             TEXT UNIQUE,
		ghost_mode       INTEGER NOT NULL DEFAULT 0,
		ghost_mode_until INTEGER,
		is_admin         INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chips (
		id               TEXT PRIMARY KEY,
		uid              TEXT NOT NULL UNIQUE,
		active_mode      TEXT NOT NULL DEFAULT 'unset',
		assigned_user_id TEXT REFERENCES users(id),
		company_id       TEXT REFERENCES companies(id),
		target_url       TEXT,
		menu_data        TEXT,
		created_at       INTEGER NOT NULL,
		updated_at       INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chips_assigned_user_id ON chips(assigned_user_id)`,
	`CREATE TABLE IF NOT EXISTS scan_events (
		id         TEXT PRIMARY KEY,
		chip_id    TEXT NOT NULL,
		owner_id   TEXT,
		scanned_at INTEGER NOT NULL,
		device     TEXT NOT NULL,
		ip         TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scan_events_chip_scanned ON scan_events(chip_id, scanned_at DESC)`,
	`CREATE TABLE IF NOT EXISTS leads (
		id         TEXT PRIMARY KEY,
		chip_id    TEXT NOT NULL,
		owner_id   TEXT,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		lead_phone TEXT,
		notes      TEXT,
		sentiment  TEXT,
		created_at INTEGER NOT NULL
	)`,
}

func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func nanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: nanos(*t), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
