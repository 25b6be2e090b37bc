package handlers

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	// tap links written to the chips
	r.Get("/t/{uid}", h.TapRedirect)

	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Get("/taps/{uid}", h.TapDecision)
		r.Post("/taps/{uid}/leads", h.CaptureLead)

		// identity is optional so that an anonymous claim can be sent to sign-in
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))

			r.Post("/chips/{uid}/claim", h.ClaimChip)
		})

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/chips", h.ListChips)
			r.Get("/chips/{id}", h.GetChip)
			r.Patch("/chips/{id}", h.UpdateChip)
			r.Get("/chips/{id}/scans", h.ChipScans)
		})
	})
}

func (h *Handler) InitAuth(secret string) {
	h.tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
}
