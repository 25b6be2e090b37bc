// Package comm holds the message envelope and payloads shared by the
// services over NATS and websockets.
package comm

import (
	"encoding/json"
	"time"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

// NATS subjects.
const (
	SubjectScan         = "chip.scan"
	SubjectClaimed      = "chip.claimed"
	SubjectLeadCaptured = "lead.captured"
)

// Message types carried in WSMessage.Type.
const (
	TypeTap     = "tap"
	TypeClaimed = "claimed"
	TypeLead    = "lead"
	TypeReady   = "ready"
	TypeError   = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "tap", "claimed"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid,omitempty"`
}

// TapNotice is the live-feed view of a scan event. IP and user agent stay
// in the archive.
type TapNotice struct {
	ScanID    string    `json:"scan_id"`
	ChipID    string    `json:"chip_id"`
	OwnerID   string    `json:"owner_id,omitempty"`
	Device    string    `json:"device"`
	ScannedAt time.Time `json:"scanned_at"`
}

type ClaimNotice struct {
	ChipID    string    `json:"chip_id"`
	UID       string    `json:"uid"`
	OwnerID   string    `json:"owner_id"`
	ClaimedAt time.Time `json:"claimed_at"`
}

type LeadNotice struct {
	LeadID    string  `json:"lead_id"`
	ChipID    string  `json:"chip_id"`
	OwnerID   string  `json:"owner_id,omitempty"`
	Name      string  `json:"name"`
	Email     string  `json:"email,omitempty"`
	LeadPhone *string `json:"lead_phone,omitempty"`
	Sentiment *string `json:"sentiment,omitempty"`
}

// Encode wraps payload in a WSMessage of the given type.
func Encode(msgType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(WSMessage{Type: msgType, Data: data})
}

func NewTapNotice(ev models.ScanEvent) TapNotice {
	n := TapNotice{ScanID: ev.ID, ChipID: ev.ChipID, Device: ev.Device, ScannedAt: ev.ScannedAt}
	if ev.OwnerID != nil {
		n.OwnerID = *ev.OwnerID
	}
	return n
}
