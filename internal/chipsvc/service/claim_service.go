package service

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
	"github.com/avvvet/tapchip-services/internal/chipsvc/uid"
)

type ClaimService struct {
	chips    ChipRepository
	users    UserRepository
	notifier Notifier
}

func NewClaimService(chips ChipRepository, users UserRepository, notifier Notifier) *ClaimService {
	return &ClaimService{chips: chips, users: users, notifier: notifier}
}

// Claim binds an unassigned chip to the caller's profile as an individual
// corporate chip. Exactly one of any set of concurrent claims on the same
// chip succeeds; the rest get ErrAlreadyClaimed.
func (s *ClaimService) Claim(ctx context.Context, id Identity, rawUID string) (*models.Chip, error) {
	user, err := resolveUser(ctx, s.users, id)
	if err != nil {
		return nil, err
	}

	normalized := uid.Normalize(rawUID)
	if normalized == "" {
		return nil, ErrChipNotRecognized
	}

	chip, err := s.chips.ConditionalAssign(ctx, normalized, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			log.WithFields(log.Fields{"uid": normalized, "user_id": user.ID}).Info("claim rejected: chip already owned")
			return nil, ErrAlreadyClaimed
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrChipNotRecognized
		default:
			return nil, fmt.Errorf("claim %s: %w", normalized, err)
		}
	}

	log.WithFields(log.Fields{"chip_id": chip.ID, "uid": chip.UID, "user_id": user.ID}).Info("chip claimed")

	if s.notifier != nil {
		if err := s.notifier.ChipClaimed(ctx, chip); err != nil {
			log.Warnf("claim notice for chip %s not published: %v", chip.ID, err)
		}
	}
	return chip, nil
}
