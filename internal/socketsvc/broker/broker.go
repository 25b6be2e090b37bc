package broker

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/comm"
)

// Broker relays tap-side events from NATS to the owning dashboards.
type Broker struct {
	Conn            *nats.Conn
	GetOwnerSockets func(string) []string
	Send            func(string, *comm.WSMessage) error
}

func NewBroker(conn *nats.Conn, fncGetOwnerSockets func(string) []string, fncSend func(string, *comm.WSMessage) error) *Broker {
	return &Broker{
		Conn:            conn,
		GetOwnerSockets: fncGetOwnerSockets,
		Send:            fncSend,
	}
}

// Subscribe is a plain subscription: every socket instance needs every
// event because any of them may hold the owner's sockets.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	if err := b.dispatch(msgNats.Data); err != nil {
		log.Errorf("Error %s", err)
	}
}

func (b *Broker) dispatch(data []byte) error {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(data, message); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}

	var (
		ownerID string
		out     any
	)
	switch message.Type {
	case comm.TypeTap:
		var ev models.ScanEvent
		if err := json.Unmarshal(message.Data, &ev); err != nil {
			return fmt.Errorf("decode scan: %w", err)
		}
		n := comm.NewTapNotice(ev)
		ownerID, out = n.OwnerID, n
	case comm.TypeClaimed:
		var n comm.ClaimNotice
		if err := json.Unmarshal(message.Data, &n); err != nil {
			return fmt.Errorf("decode claim: %w", err)
		}
		ownerID, out = n.OwnerID, n
	case comm.TypeLead:
		var n comm.LeadNotice
		if err := json.Unmarshal(message.Data, &n); err != nil {
			return fmt.Errorf("decode lead: %w", err)
		}
		ownerID, out = n.OwnerID, n
	default:
		return fmt.Errorf("unknown message %q", message.Type)
	}

	// unclaimed chips have no dashboard
	if ownerID == "" {
		return nil
	}
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	for _, socketId := range b.GetOwnerSockets(ownerID) {
		m := &comm.WSMessage{Type: message.Type, Data: payload, SocketId: socketId}
		if err := b.Send(socketId, m); err != nil {
			log.Warnf("send %s to socket %s: %v", message.Type, socketId, err)
		}
	}
	return nil
}
