package scansvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/comm"
)

// Appender is where consumed scans are written.
type Appender interface {
	Append(ctx context.Context, ev models.ScanEvent) error
}

type Consumer struct {
	Conn    *nats.Conn
	archive Appender
	timeout time.Duration
}

func NewConsumer(conn *nats.Conn, archive Appender) *Consumer {
	return &Consumer{Conn: conn, archive: archive, timeout: 10 * time.Second}
}

// QueueSubscribe shares the stream among archive replicas so each scan is
// written once.
func (c *Consumer) QueueSubscribe(topic, queueGroup string) (*nats.Subscription, error) {
	return c.Conn.QueueSubscribe(topic, queueGroup, c.handleMessage)
}

func (c *Consumer) handleMessage(msg *nats.Msg) {
	if err := c.handle(msg.Data); err != nil {
		log.Errorf("Error archiving scan: %v", err)
	}
}

func (c *Consumer) handle(data []byte) error {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if message.Type != comm.TypeTap {
		log.Debugf("ignoring %s message", message.Type)
		return nil
	}

	var ev models.ScanEvent
	if err := json.Unmarshal(message.Data, &ev); err != nil {
		return fmt.Errorf("decode scan: %w", err)
	}
	if ev.ID == "" || ev.ChipID == "" {
		return fmt.Errorf("scan event missing id or chip_id")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.archive.Append(ctx, ev)
}
