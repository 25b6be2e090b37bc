package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi"

	"github.com/avvvet/tapchip-services/internal/chipsvc/router"
	"github.com/avvvet/tapchip-services/internal/chipsvc/service"
)

// uidParam decodes the {uid} segment. chi matches on the escaped path, so
// "04%3AA1%3AB2" would otherwise reach the service still encoded.
func uidParam(r *http.Request) (string, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "uid"))
	if err != nil {
		return "", service.ErrChipNotRecognized
	}
	return raw, nil
}

type tapResult struct {
	Decision router.Decision `json:"decision"`
	Location string          `json:"location"`
}

// TapRedirect is the URL encoded on the chip itself.
func (h *Handler) TapRedirect(w http.ResponseWriter, r *http.Request) {
	raw, err := uidParam(r)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	d, err := h.taps.Resolve(r.Context(), raw, scanRequest(r))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, h.locator.Locate(d), http.StatusFound)
}

func (h *Handler) TapDecision(w http.ResponseWriter, r *http.Request) {
	raw, err := uidParam(r)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	d, err := h.taps.Resolve(r.Context(), raw, scanRequest(r))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.CreateResponse(w, Response{
		Message: string(d.Kind),
		Code:    http.StatusOK,
		Data:    tapResult{Decision: d, Location: h.locator.Locate(d)},
	})
}

type claimRequired struct {
	Redirect string `json:"redirect"`
}

func (h *Handler) ClaimChip(w http.ResponseWriter, r *http.Request) {
	raw, err := uidParam(r)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	chip, err := h.claims.Claim(r.Context(), identity(r), raw)
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) {
			next := "/claim/" + url.PathEscape(raw)
			h.CreateResponse(w, Response{
				Code:  http.StatusUnauthorized,
				Error: err.Error(),
				Data:  claimRequired{Redirect: h.signInURL + "?" + url.Values{"next": {next}}.Encode()},
			})
			return
		}
		h.serviceError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "chip claimed", Code: http.StatusOK, Data: chip})
}

func (h *Handler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	raw, err := uidParam(r)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	var in service.LeadInput
	if err := decodeJSON(w, r, &in); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "malformed lead payload"})
		return
	}
	lead, err := h.leads.Capture(r.Context(), raw, in)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "lead captured", Code: http.StatusCreated, Data: lead})
}
