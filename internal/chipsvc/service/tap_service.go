package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/router"
	"github.com/avvvet/tapchip-services/internal/chipsvc/scanlog"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
	"github.com/avvvet/tapchip-services/internal/chipsvc/uid"
)

type TapService struct {
	chips ChipRepository
	scans *scanlog.Logger
	now   func() time.Time
}

func NewTapService(chips ChipRepository, scans *scanlog.Logger) *TapService {
	return &TapService{chips: chips, scans: scans, now: time.Now}
}

// Resolve turns a raw UID from a tap into a routing decision. Domain failures
// come back as error decisions; the returned error is set only when the
// store itself is unavailable.
//
// The scan write is issued before routing is computed so that a response can
// never precede the log attempt.
func (s *TapService) Resolve(ctx context.Context, rawUID string, req scanlog.Request) (router.Decision, error) {
	normalized := uid.Normalize(rawUID)
	if normalized == "" {
		return router.Fail(router.ReasonChipNotRecognized, rawUID), nil
	}

	tc, err := s.chips.GetForTap(ctx, normalized)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.WithField("uid", normalized).Info("tap on unregistered chip")
			return router.Fail(router.ReasonChipNotRecognized, rawUID), nil
		}
		return router.Decision{}, fmt.Errorf("load chip %s: %w", normalized, err)
	}

	s.scans.Record(ctx, tc.Chip.ID, ownerOf(tc), req)

	d := router.Route(tc, s.now())
	if d.IsError() {
		log.WithFields(log.Fields{
			"chip_id": tc.Chip.ID,
			"uid":     tc.Chip.UID,
			"mode":    tc.Chip.ActiveMode,
			"reason":  d.Reason,
		}).Warn("chip routing misconfigured")
	}
	return d, nil
}

func ownerOf(tc *models.TapChip) *string {
	if tc.Owner != nil {
		id := tc.Owner.ID
		return &id
	}
	return tc.Chip.AssignedUserID
}
