package lite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

type ScanStore struct {
	db *sql.DB
}

func (s *ScanStore) Append(ctx context.Context, ev models.ScanEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scan_events (id, chip_id, owner_id, scanned_at, device, ip, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.ChipID, ev.OwnerID, nanos(ev.ScannedAt), ev.Device, ev.IP, ev.UserAgent)
	if err != nil {
		return fmt.Errorf("failed to append scan event: %w", err)
	}
	return nil
}

func (s *ScanStore) ListByChip(ctx context.Context, chipID string, limit int) ([]models.ScanEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chip_id, owner_id, scanned_at, device, ip, user_agent
		FROM scan_events
		WHERE chip_id = ?
		ORDER BY scanned_at DESC
		LIMIT ?
	`, chipID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ScanEvent
	for rows.Next() {
		var ev models.ScanEvent
		var at int64
		if err := rows.Scan(&ev.ID, &ev.ChipID, &ev.OwnerID, &at, &ev.Device, &ev.IP, &ev.UserAgent); err != nil {
			return nil, err
		}
		ev.ScannedAt = fromNanos(at)
		events = append(events, ev)
	}
	return events, rows.Err()
}

type LeadStore struct {
	db *sql.DB
}

func (s *LeadStore) Create(ctx context.Context, lead *models.Lead) error {
	lead.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, chip_id, owner_id, name, email, lead_phone, notes, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lead.ID, lead.ChipID, lead.OwnerID, lead.Name, lead.Email, lead.LeadPhone, lead.Notes, lead.Sentiment, nanos(lead.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (s *LeadStore) ListByChip(ctx context.Context, chipID string) ([]models.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, chip_id, owner_id, name, email, lead_phone, notes, sentiment, created_at
		FROM leads WHERE chip_id = ? ORDER BY created_at DESC
	`, chipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		var at int64
		if err := rows.Scan(&l.ID, &l.ChipID, &l.OwnerID, &l.Name, &l.Email, &l.LeadPhone, &l.Notes, &l.Sentiment, &at); err != nil {
			return nil, err
		}
		l.CreatedAt = fromNanos(at)
		leads = append(leads, l)
	}
	return leads, rows.Err()
}
