package models

import (
	"time"
)

// User represents the users table in the database.
type User struct {
	ID             string     `json:"id"`
	AuthSubject    string     `json:"-"`
	Name           string     `json:"name"`
	Slug           *string    `json:"slug,omitempty"`
	GhostMode      bool       `json:"ghost_mode"`
	GhostModeUntil *time.Time `json:"ghost_mode_until,omitempty"`
	IsAdmin        bool       `json:"-"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// GhostActive reports whether the ghost window covers now. A nil
// GhostModeUntil means the window is open-ended.
func (u *User) GhostActive(now time.Time) bool {
	if u == nil || !u.GhostMode {
		return false
	}
	return u.GhostModeUntil == nil || u.GhostModeUntil.After(now)
}
