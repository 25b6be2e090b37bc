package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

func (h *Handler) ListChips(w http.ResponseWriter, r *http.Request) {
	chips, err := h.chips.ListOwned(r.Context(), identity(r))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if chips == nil {
		chips = []*models.Chip{}
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: chips})
}

func (h *Handler) GetChip(w http.ResponseWriter, r *http.Request) {
	chip, err := h.chips.Get(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: chip})
}

func (h *Handler) UpdateChip(w http.ResponseWriter, r *http.Request) {
	var patch models.ChipPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.CreateResponse(w, Response{Code: http.StatusBadRequest, Error: "malformed chip patch"})
		return
	}
	chip, err := h.chips.Update(r.Context(), identity(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.CreateResponse(w, Response{Message: "chip updated", Code: http.StatusOK, Data: chip})
}

func (h *Handler) ChipScans(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.chips.ScanHistory(r.Context(), identity(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if events == nil {
		events = []models.ScanEvent{}
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: events})
}
