// Package router maps a loaded chip to a destination. It does no I/O.
package router

import (
	"time"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

// Mode is the closed set of chip destination categories. Anything the store
// holds that is not one of the named modes parses to ModeUnset.
type Mode int

const (
	ModeUnset Mode = iota
	ModeCorporate
	ModeHospitality
	ModeCampaign
)

var modeNames = map[Mode]string{
	ModeUnset:       "unset",
	ModeCorporate:   "corporate",
	ModeHospitality: "hospitality",
	ModeCampaign:    "campaign",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "unset"
}

// ParseMode maps a stored active_mode. ok is false for unrecognized values,
// which still route as ModeUnset.
func ParseMode(s string) (Mode, bool) {
	for m, name := range modeNames {
		if name == s {
			return m, true
		}
	}
	return ModeUnset, false
}

type Kind string

const (
	KindProfile          Kind = "profile"
	KindExternalRedirect Kind = "external_redirect"
	KindReview           Kind = "review"
	KindCampaign         Kind = "campaign"
	KindGhost            Kind = "ghost"
	KindError            Kind = "error"
)

type Reason string

const (
	ReasonChipNotRecognized Reason = "chip_not_recognized"
	ReasonNoOwner           Reason = "no_owner"
	ReasonUnknownMode       Reason = "unknown_mode"
	ReasonNoCompany         Reason = "no_company"
)

// Profile lookup keys for KindProfile decisions.
const (
	BySlug = "slug"
	ByID   = "id"
)

// Decision is the derived routing result. Target holds the slug, user id,
// URL or company id depending on Kind; for ChipNotRecognized it is the raw UID.
type Decision struct {
	Kind   Kind   `json:"kind"`
	Target string `json:"target,omitempty"`
	By     string `json:"by,omitempty"`
	Reason Reason `json:"reason,omitempty"`
}

func (d Decision) IsError() bool {
	return d.Kind == KindError
}

func Fail(reason Reason, target string) Decision {
	return Decision{Kind: KindError, Reason: reason, Target: target}
}

// Route computes the destination for tc at instant now.
func Route(tc *models.TapChip, now time.Time) Decision {
	mode, _ := ParseMode(tc.Chip.ActiveMode)

	switch mode {
	case ModeCorporate:
		return routeCorporate(tc, now)
	case ModeHospitality:
		if u := tc.Chip.MenuURL(); u != "" {
			return Decision{Kind: KindExternalRedirect, Target: u}
		}
		return companyDecision(tc, KindReview)
	case ModeCampaign:
		return companyDecision(tc, KindCampaign)
	case ModeUnset:
		if t := deref(tc.Chip.TargetURL); t != "" {
			return Decision{Kind: KindExternalRedirect, Target: t}
		}
		return Fail(ReasonUnknownMode, tc.Chip.ActiveMode)
	}
	panic("router: unhandled mode " + mode.String())
}

// Ghost mode hides the owner's profile only; it never applies to
// hospitality or campaign destinations.
func routeCorporate(tc *models.TapChip, now time.Time) Decision {
	if tc.Owner.GhostActive(now) {
		return Decision{Kind: KindGhost}
	}
	if tc.Owner != nil {
		if slug := deref(tc.Owner.Slug); slug != "" {
			return Decision{Kind: KindProfile, Target: slug, By: BySlug}
		}
		if tc.Owner.ID != "" {
			return Decision{Kind: KindProfile, Target: tc.Owner.ID, By: ByID}
		}
	}
	if id := deref(tc.Chip.AssignedUserID); id != "" {
		return Decision{Kind: KindProfile, Target: id, By: ByID}
	}
	return Fail(ReasonNoOwner, "")
}

// Company-keyed pages fall back to target_url only when no company is set.
func companyDecision(tc *models.TapChip, kind Kind) Decision {
	if id := deref(tc.Chip.CompanyID); id != "" {
		return Decision{Kind: kind, Target: id}
	}
	if t := deref(tc.Chip.TargetURL); t != "" {
		return Decision{Kind: KindExternalRedirect, Target: t}
	}
	return Fail(ReasonNoCompany, "")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
