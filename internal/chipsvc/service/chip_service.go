package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	log "github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/router"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
	"github.com/avvvet/tapchip-services/internal/chipsvc/uid"
)

const maxScanHistory = 200

// ChipService handles owner and administrator changes to claimed chips.
type ChipService struct {
	chips ChipRepository
	users UserRepository
	scans ScanReader
	menu  *gojsonschema.Schema
}

func NewChipService(chips ChipRepository, users UserRepository, scans ScanReader) (*ChipService, error) {
	schema, err := newMenuSchema()
	if err != nil {
		return nil, fmt.Errorf("compile menu schema: %w", err)
	}
	return &ChipService{chips: chips, users: users, scans: scans, menu: schema}, nil
}

// authorize loads the chip and checks the caller owns it or is an admin.
func (s *ChipService) authorize(ctx context.Context, id Identity, chipID string) (*models.User, *models.Chip, error) {
	user, err := resolveUser(ctx, s.users, id)
	if err != nil {
		return nil, nil, err
	}
	chip, err := s.chips.GetByID(ctx, chipID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrChipNotFound
		}
		return nil, nil, err
	}
	if !user.IsAdmin && !chip.OwnedBy(user.ID) {
		return nil, nil, ErrForbidden
	}
	return user, chip, nil
}

func (s *ChipService) Get(ctx context.Context, id Identity, chipID string) (*models.Chip, error) {
	_, chip, err := s.authorize(ctx, id, chipID)
	return chip, err
}

func (s *ChipService) ListOwned(ctx context.Context, id Identity) ([]*models.Chip, error) {
	user, err := resolveUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}
	return s.chips.ListByOwner(ctx, user.ID)
}

// Update applies an owner or admin change. Assignment changes are admin-only.
func (s *ChipService) Update(ctx context.Context, id Identity, chipID string, patch models.ChipPatch) (*models.Chip, error) {
	user, chip, err := s.authorize(ctx, id, chipID)
	if err != nil {
		return nil, err
	}
	if patch.AssignedUserID != nil && !user.IsAdmin {
		return nil, ErrForbidden
	}
	if err := s.validatePatch(patch); err != nil {
		return nil, err
	}

	updated, err := s.chips.Update(ctx, chip.ID, patch)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrChipNotFound
		case errors.Is(err, store.ErrInvalidReference):
			return nil, fmt.Errorf("%w: unknown user or company", ErrInvalidInput)
		}
		return nil, err
	}

	log.WithFields(log.Fields{"chip_id": chip.ID, "by": user.ID, "admin": user.IsAdmin}).Info("chip updated")
	return updated, nil
}

// Reassign is the operator path for moving or releasing a chip. An empty
// userID releases the chip so it can be claimed again.
func (s *ChipService) Reassign(ctx context.Context, rawUID, userID string) (*models.Chip, error) {
	chip, err := s.chips.Get(ctx, uid.Normalize(rawUID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChipNotRecognized
		}
		return nil, err
	}

	patch := models.ChipPatch{AssignedUserID: &userID}
	if userID == "" {
		unset := router.ModeUnset.String()
		patch.ActiveMode = &unset
	}
	updated, err := s.chips.Update(ctx, chip.ID, patch)
	if errors.Is(err, store.ErrInvalidReference) {
		return nil, fmt.Errorf("%w: unknown user %s", ErrInvalidInput, userID)
	}
	return updated, err
}

func (s *ChipService) ScanHistory(ctx context.Context, id Identity, chipID string, limit int) ([]models.ScanEvent, error) {
	if _, _, err := s.authorize(ctx, id, chipID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > maxScanHistory {
		limit = maxScanHistory
	}
	return s.scans.ListByChip(ctx, chipID, limit)
}

func (s *ChipService) validatePatch(p models.ChipPatch) error {
	if p.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if p.ActiveMode != nil {
		if _, ok := router.ParseMode(*p.ActiveMode); !ok {
			return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, *p.ActiveMode)
		}
	}
	if p.TargetURL != nil && *p.TargetURL != "" {
		if err := checkURL(*p.TargetURL); err != nil {
			return err
		}
	}
	if p.MenuData != nil && string(p.MenuData) != "null" {
		if err := validateMenu(s.menu, p.MenuData); err != nil {
			return err
		}
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: target_url must be an absolute http(s) URL", ErrInvalidInput)
	}
	return nil
}
