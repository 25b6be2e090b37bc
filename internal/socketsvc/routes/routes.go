package routes

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"

	"github.com/avvvet/tapchip-services/internal/socketsvc/handlers"
)

var tokenAuth *jwtauth.JWTAuth

func SetRoutes(r chi.Router, h *handlers.Handler) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// browsers cannot set headers on a websocket handshake, so the
		// token may also arrive as ?jwt=
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verify(tokenAuth, jwtauth.TokenFromHeader, jwtauth.TokenFromCookie, jwtauth.TokenFromQuery))

			r.Get("/ws", h.HandleWebSocket)
		})
	})
}

func InitAuth(secret string) *jwtauth.JWTAuth {
	tokenAuth = jwtauth.New("HS256", []byte(secret), nil)
	return tokenAuth
}
