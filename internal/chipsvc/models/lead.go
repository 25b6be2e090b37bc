package models

import "time"

// Lead is contact data left by someone who tapped a chip. LeadPhone, Notes
// and Sentiment are nullable.
type Lead struct {
	ID        string    `json:"id"`
	ChipID    string    `json:"chip_id"`
	OwnerID   *string   `json:"owner_id,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	LeadPhone *string   `json:"lead_phone,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	Sentiment *string   `json:"sentiment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
