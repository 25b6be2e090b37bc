package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

type CompanyStore struct {
	db *pgxpool.Pool
}

func NewCompanyStore(db *pgxpool.Pool) *CompanyStore {
	return &CompanyStore{db: db}
}

func (s *CompanyStore) Create(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	err := s.db.QueryRow(ctx, `INSERT INTO companies (id, name) VALUES ($1, $2) RETURNING created_at`, c.ID, c.Name).
		Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("could not create company: %w", err)
	}
	return nil
}
