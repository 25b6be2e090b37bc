package models

import "time"

// ScanEvent is an append-only tap record. ChipID is a weak reference.
type ScanEvent struct {
	ID        string    `json:"id" bson:"_id"`
	ChipID    string    `json:"chip_id" bson:"chip_id"`
	OwnerID   *string   `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	ScannedAt time.Time `json:"scanned_at" bson:"scanned_at"`
	Device    string    `json:"device" bson:"device"`
	IP        string    `json:"ip" bson:"ip"`
	UserAgent string    `json:"user_agent" bson:"user_agent"`
}
