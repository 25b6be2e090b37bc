package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// scan_events.chip_id and leads.chip_id carry no foreign key: taps are kept
// even if a chip row is later removed by an administrator.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id               TEXT PRIMARY KEY,
		auth_subject     TEXT NOT NULL UNIQUE,
		name             TEXT NOT NULL DEFAULT '',
		slug             TEXT UNIQUE,
		ghost_mode       BOOLEAN NOT NULL DEFAULT false,
		ghost_mode_until TIMESTAMPTZ,
		is_admin         BOOLEAN NOT NULL DEFAULT false,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS chips (
		id               TEXT PRIMARY KEY,
		uid              TEXT NOT NULL UNIQUE,
		active_mode      TEXT NOT NULL DEFAULT 'unset',
		assigned_user_id TEXT REFERENCES users(id) ON UPDATE CASCADE ON DELETE RESTRICT,
		company_id       TEXT REFERENCES companies(id) ON UPDATE CASCADE ON DELETE SET NULL,
		target_url       TEXT,
		menu_data        JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chips_assigned_user_id ON chips(assigned_user_id)`,
	`CREATE TABLE IF NOT EXISTS scan_events (
		id         TEXT PRIMARY KEY,
		chip_id    TEXT NOT NULL,
		owner_id   TEXT,
		scanned_at TIMESTAMPTZ NOT NULL,
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
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_leads_chip_id ON leads(chip_id)`,
}

// Migrate creates missing tables and indexes.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info("running database migrations")
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
