package models

import (
	"encoding/json"
	"time"
)

// Chip is a physical NFC tag keyed by its normalized hardware UID.
type Chip struct {
	ID             string          `json:"id"`
	UID            string          `json:"uid"`
	ActiveMode     string          `json:"active_mode"`
	AssignedUserID *string         `json:"assigned_user_id,omitempty"`
	CompanyID      *string         `json:"company_id,omitempty"`
	TargetURL      *string         `json:"target_url,omitempty"`
	MenuData       json.RawMessage `json:"menu_data,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Claimable reports whether nobody owns the chip yet.
func (c *Chip) Claimable() bool {
	return c.AssignedUserID == nil
}

// MenuURL returns menu_data.url, or "" when the payload is absent or has no url.
func (c *Chip) MenuURL() string {
	if len(c.MenuData) == 0 {
		return ""
	}
	var menu struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(c.MenuData, &menu); err != nil {
		return ""
	}
	return menu.URL
}

// OwnedBy reports whether userID is the chip's assigned user.
func (c *Chip) OwnedBy(userID string) bool {
	return c.AssignedUserID != nil && userID != "" && *c.AssignedUserID == userID
}

// ChipPatch is a partial update. Nil fields are left untouched; an empty
// string on a nullable column clears it. MenuData "null" clears the payload.
type ChipPatch struct {
	ActiveMode     *string         `json:"active_mode,omitempty"`
	AssignedUserID *string         `json:"assigned_user_id,omitempty"`
	CompanyID      *string         `json:"company_id,omitempty"`
	TargetURL      *string         `json:"target_url,omitempty"`
	MenuData       json.RawMessage `json:"menu_data,omitempty"`
}

func (p ChipPatch) Empty() bool {
	return p.ActiveMode == nil && p.AssignedUserID == nil && p.CompanyID == nil &&
		p.TargetURL == nil && p.MenuData == nil
}

// TapChip is everything the router needs, loaded in one fetch.
type TapChip struct {
	Chip    Chip
	Owner   *User
	Company *Company
}
