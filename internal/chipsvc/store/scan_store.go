package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

type ScanStore struct {
	db *pgxpool.Pool
}

func NewScanStore(db *pgxpool.Pool) *ScanStore {
	return &ScanStore{db: db}
}

// Append inserts a scan event. Events are never updated or deleted here.
func (s *ScanStore) Append(ctx context.Context, ev models.ScanEvent) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO scan_events (id, chip_id, owner_id, scanned_at, device, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.ChipID, ev.OwnerID, ev.ScannedAt, ev.Device, ev.IP, ev.UserAgent)
	if err != nil {
		return fmt.Errorf("failed to append scan event: %w", err)
	}
	return nil
}

// ListByChip returns the most recent events for a chip, newest first.
func (s *ScanStore) ListByChip(ctx context.Context, chipID string, limit int) ([]models.ScanEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, chip_id, owner_id, scanned_at, device, ip, user_agent
		FROM scan_events
		WHERE chip_id = $1
		ORDER BY scanned_at DESC
		LIMIT $2
	`, chipID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ScanEvent
	for rows.Next() {
		var ev models.ScanEvent
		if err := rows.Scan(&ev.ID, &ev.ChipID, &ev.OwnerID, &ev.ScannedAt, &ev.Device, &ev.IP, &ev.UserAgent); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
