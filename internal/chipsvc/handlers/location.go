package handlers

import (
	"net/url"

	"github.com/avvvet/tapchip-services/internal/chipsvc/router"
)

// Locator turns routing decisions into absolute redirect URLs.
type Locator struct {
	BaseURL   string
	GhostPath string
}

func (l Locator) Locate(d router.Decision) string {
	switch d.Kind {
	case router.KindExternalRedirect:
		return d.Target
	case router.KindProfile:
		if d.By == router.BySlug {
			return l.BaseURL + "/u/" + url.PathEscape(d.Target)
		}
		return l.BaseURL + "/profile/" + url.PathEscape(d.Target)
	case router.KindReview:
		return l.BaseURL + "/review/" + url.PathEscape(d.Target)
	case router.KindCampaign:
		return l.BaseURL + "/campaign/" + url.PathEscape(d.Target)
	case router.KindGhost:
		return l.BaseURL + l.GhostPath
	}

	if d.Reason == router.ReasonChipNotRecognized {
		return l.BaseURL + "/not-registered?" + url.Values{"uid": {d.Target}}.Encode()
	}
	return l.BaseURL + "/error?" + url.Values{"reason": {string(d.Reason)}}.Encode()
}
