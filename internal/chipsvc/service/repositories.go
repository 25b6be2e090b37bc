package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
)

// ChipRepository is the Chip Identity Store. Both store.ChipStore and
// lite.ChipStore satisfy it.
type ChipRepository interface {
	Get(ctx context.Context, uid string) (*models.Chip, error)
	GetByID(ctx context.Context, id string) (*models.Chip, error)
	GetForTap(ctx context.Context, uid string) (*models.TapChip, error)
	ConditionalAssign(ctx context.Context, uid, userID string) (*models.Chip, error)
	Update(ctx context.Context, id string, patch models.ChipPatch) (*models.Chip, error)
	ListByOwner(ctx context.Context, userID string) ([]*models.Chip, error)
}

type UserRepository interface {
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}

type LeadRepository interface {
	Create(ctx context.Context, lead *models.Lead) error
}

type ScanReader interface {
	ListByChip(ctx context.Context, chipID string, limit int) ([]models.ScanEvent, error)
}

// Notifier publishes best-effort domain notices. A nil Notifier is allowed.
type Notifier interface {
	ChipClaimed(ctx context.Context, chip *models.Chip) error
	LeadCaptured(ctx context.Context, lead *models.Lead) error
}

// Identity is the authenticated caller, passed in explicitly by the
// transport layer. An empty Subject means anonymous.
type Identity struct {
	Subject string
}

// resolveUser maps the caller to their internal profile.
func resolveUser(ctx context.Context, users UserRepository, id Identity) (*models.User, error) {
	if id.Subject == "" {
		return nil, ErrUnauthenticated
	}
	u, err := users.GetBySubject(ctx, id.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	return u, nil
}
