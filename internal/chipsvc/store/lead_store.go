package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

type LeadStore struct {
	db *pgxpool.Pool
}

func NewLeadStore(db *pgxpool.Pool) *LeadStore {
	return &LeadStore{db: db}
}

func (s *LeadStore) Create(ctx context.Context, lead *models.Lead) error {
	err := s.db.QueryRow(ctx, `
		INSERT INTO leads (id, chip_id, owner_id, name, email, lead_phone, notes, sentiment)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, lead.ID, lead.ChipID, lead.OwnerID, lead.Name, lead.Email, lead.LeadPhone, lead.Notes, lead.Sentiment).
		Scan(&lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}
