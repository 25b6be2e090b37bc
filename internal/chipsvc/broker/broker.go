// Package broker publishes tap-side events to NATS.
package broker

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/comm"
)

// Publisher is the part of *nats.Conn the broker uses.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Broker is both a scan log sink and the claim/lead notifier.
type Broker struct {
	Conn Publisher
}

func NewBroker(conn Publisher) *Broker {
	return &Broker{Conn: conn}
}

// Append publishes the full scan event on chip.scan.
func (b *Broker) Append(ctx context.Context, ev models.ScanEvent) error {
	return b.publish(ctx, comm.SubjectScan, comm.TypeTap, ev)
}

func (b *Broker) ChipClaimed(ctx context.Context, chip *models.Chip) error {
	n := comm.ClaimNotice{ChipID: chip.ID, UID: chip.UID, ClaimedAt: chip.UpdatedAt}
	if chip.AssignedUserID != nil {
		n.OwnerID = *chip.AssignedUserID
	}
	return b.publish(ctx, comm.SubjectClaimed, comm.TypeClaimed, n)
}

func (b *Broker) LeadCaptured(ctx context.Context, lead *models.Lead) error {
	n := comm.LeadNotice{
		LeadID:    lead.ID,
		ChipID:    lead.ChipID,
		Name:      lead.Name,
		Email:     lead.Email,
		LeadPhone: lead.LeadPhone,
		Sentiment: lead.Sentiment,
	}
	if lead.OwnerID != nil {
		n.OwnerID = *lead.OwnerID
	}
	return b.publish(ctx, comm.SubjectLeadCaptured, comm.TypeLead, n)
}

func (b *Broker) publish(ctx context.Context, topic, msgType string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bytes, err := comm.Encode(msgType, payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	if err := b.Conn.Publish(topic, bytes); err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}
	return nil
}
