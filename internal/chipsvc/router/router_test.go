package router

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

var now = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func str(s string) *string { return &s }

func owned(mode string, owner *models.User) *models.TapChip {
	tc := &models.TapChip{Chip: models.Chip{ID: "chip-1", UID: "04A1B2", ActiveMode: mode}}
	if owner != nil {
		tc.Chip.AssignedUserID = str(owner.ID)
		tc.Owner = owner
	}
	return tc
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeUnset, ModeCorporate, ModeHospitality, ModeCampaign} {
		got, ok := ParseMode(m.String())
		assert.True(t, ok)
		assert.Equal(t, m, got)
	}
	got, ok := ParseMode("Corporate")
	assert.False(t, ok)
	assert.Equal(t, ModeUnset, got)
}

func TestRouteCorporate(t *testing.T) {
	t.Run("slug wins", func(t *testing.T) {
		d := Route(owned("corporate", &models.User{ID: "u-1", Slug: str("jane")}), now)
		assert.Equal(t, Decision{Kind: KindProfile, Target: "jane", By: BySlug}, d)
	})
	t.Run("id when no slug", func(t *testing.T) {
		d := Route(owned("corporate", &models.User{ID: "u-123"}), now)
		assert.Equal(t, Decision{Kind: KindProfile, Target: "u-123", By: ByID}, d)
	})
	t.Run("empty slug counts as absent", func(t *testing.T) {
		d := Route(owned("corporate", &models.User{ID: "u-123", Slug: str("")}), now)
		assert.Equal(t, ByID, d.By)
	})
	t.Run("assigned id without loaded user row", func(t *testing.T) {
		tc := owned("corporate", nil)
		tc.Chip.AssignedUserID = str("u-404")
		assert.Equal(t, Decision{Kind: KindProfile, Target: "u-404", By: ByID}, Route(tc, now))
	})
	t.Run("no owner", func(t *testing.T) {
		d := Route(owned("corporate", nil), now)
		assert.True(t, d.IsError())
		assert.Equal(t, ReasonNoOwner, d.Reason)
	})
	t.Run("target_url does not rescue corporate", func(t *testing.T) {
		tc := owned("corporate", nil)
		tc.Chip.TargetURL = str("https://fallback.example")
		assert.Equal(t, ReasonNoOwner, Route(tc, now).Reason)
	})
}

func TestRouteGhost(t *testing.T) {
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	tests := []struct {
		name  string
		owner *models.User
		want  Kind
	}{
		{"open ended", &models.User{ID: "u-1", Slug: str("jane"), GhostMode: true}, KindGhost},
		{"future window", &models.User{ID: "u-1", GhostMode: true, GhostModeUntil: &future}, KindGhost},
		{"expired window", &models.User{ID: "u-1", Slug: str("jane"), GhostMode: true, GhostModeUntil: &past}, KindProfile},
		{"flag off", &models.User{ID: "u-1", GhostModeUntil: &future}, KindProfile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Route(owned("corporate", tt.owner), now).Kind)
		})
	}
}

func TestGhostDoesNotAffectOtherModes(t *testing.T) {
	ghost := &models.User{ID: "u-1", GhostMode: true}

	h := owned("hospitality", ghost)
	h.Chip.CompanyID = str("c-9")
	assert.Equal(t, Decision{Kind: KindReview, Target: "c-9"}, Route(h, now))

	c := owned("campaign", ghost)
	c.Chip.CompanyID = str("c-9")
	assert.Equal(t, Decision{Kind: KindCampaign, Target: "c-9"}, Route(c, now))
}

func TestRouteHospitality(t *testing.T) {
	t.Run("menu url beats review and target_url", func(t *testing.T) {
		tc := owned("hospitality", nil)
		tc.Chip.MenuData = json.RawMessage(`{"url":"https://menu.example"}`)
		tc.Chip.CompanyID = str("c-9")
		tc.Chip.TargetURL = str("https://other.example")
		assert.Equal(t, Decision{Kind: KindExternalRedirect, Target: "https://menu.example"}, Route(tc, now))
	})
	t.Run("review by company", func(t *testing.T) {
		tc := owned("hospitality", nil)
		tc.Chip.CompanyID = str("c-9")
		tc.Chip.TargetURL = str("https://other.example")
		assert.Equal(t, Decision{Kind: KindReview, Target: "c-9"}, Route(tc, now))
	})
	t.Run("no company falls back to target_url", func(t *testing.T) {
		tc := owned("hospitality", nil)
		tc.Chip.TargetURL = str("https://other.example")
		assert.Equal(t, KindExternalRedirect, Route(tc, now).Kind)
	})
	t.Run("nothing configured", func(t *testing.T) {
		assert.Equal(t, ReasonNoCompany, Route(owned("hospitality", nil), now).Reason)
	})
}

func TestRouteCampaign(t *testing.T) {
	tc := owned("campaign", nil)
	tc.Chip.CompanyID = str("c-2")
	tc.Chip.MenuData = json.RawMessage(`{"url":"https://menu.example"}`)
	assert.Equal(t, Decision{Kind: KindCampaign, Target: "c-2"}, Route(tc, now))

	assert.Equal(t, ReasonNoCompany, Route(owned("campaign", nil), now).Reason)
}

func TestRouteDefaultBranch(t *testing.T) {
	for _, mode := range []string{"unset", "", "retail", "CORPORATE"} {
		t.Run("mode="+mode, func(t *testing.T) {
			tc := owned(mode, &models.User{ID: "u-1", Slug: str("jane")})
			tc.Chip.TargetURL = str("https://landing.example")
			assert.Equal(t, Decision{Kind: KindExternalRedirect, Target: "https://landing.example"}, Route(tc, now))

			tc.Chip.TargetURL = nil
			d := Route(tc, now)
			assert.Equal(t, ReasonUnknownMode, d.Reason)
			assert.Equal(t, mode, d.Target)
		})
	}
}
