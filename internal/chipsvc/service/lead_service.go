package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
	"github.com/avvvet/tapchip-services/internal/chipsvc/uid"
)

var sentiments = map[string]bool{"positive": true, "neutral": true, "negative": true}

// LeadInput is the contact form submitted from a tap landing page.
type LeadInput struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	LeadPhone *string `json:"lead_phone"`
	Notes     *string `json:"notes"`
	Sentiment *string `json:"sentiment"`
}

func (in *LeadInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.LeadPhone = blankToNil(in.LeadPhone)
	in.Notes = blankToNil(in.Notes)
	in.Sentiment = blankToNil(in.Sentiment)
}

func (in LeadInput) validate() error {
	if in.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Email == "" && in.LeadPhone == nil {
		return fmt.Errorf("%w: email or lead_phone is required", ErrInvalidInput)
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
		}
	}
	if in.Sentiment != nil && !sentiments[*in.Sentiment] {
		return fmt.Errorf("%w: sentiment must be positive, neutral or negative", ErrInvalidInput)
	}
	return nil
}

type LeadService struct {
	chips    ChipRepository
	leads    LeadRepository
	notifier Notifier
}

func NewLeadService(chips ChipRepository, leads LeadRepository, notifier Notifier) *LeadService {
	return &LeadService{chips: chips, leads: leads, notifier: notifier}
}

// Capture stores a lead against the tapped chip and its current owner.
func (s *LeadService) Capture(ctx context.Context, rawUID string, in LeadInput) (*models.Lead, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	chip, err := s.chips.Get(ctx, uid.Normalize(rawUID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrChipNotRecognized
		}
		return nil, err
	}

	lead := &models.Lead{
		ID:        uuid.New().String(),
		ChipID:    chip.ID,
		OwnerID:   chip.AssignedUserID,
		Name:      in.Name,
		Email:     in.Email,
		LeadPhone: in.LeadPhone,
		Notes:     in.Notes,
		Sentiment: in.Sentiment,
	}
	if err := s.leads.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("save lead: %w", err)
	}

	log.WithFields(log.Fields{"lead_id": lead.ID, "chip_id": chip.ID}).Info("lead captured")
	if s.notifier != nil {
		if err := s.notifier.LeadCaptured(ctx, lead); err != nil {
			log.Warnf("lead notice %s not published: %v", lead.ID, err)
		}
	}
	return lead, nil
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
