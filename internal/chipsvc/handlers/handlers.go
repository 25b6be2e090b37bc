package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/scanlog"
	"github.com/avvvet/tapchip-services/internal/chipsvc/service"
)

// maxBody caps JSON request bodies on the public surface.
const maxBody = 64 << 10

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	locator   Locator
	signInURL string
	port      string

	taps   *service.TapService
	claims *service.ClaimService
	chips  *service.ChipService
	leads  *service.LeadService
}

type Options struct {
	JWTSecret string
	Locator   Locator
	SignInURL string
	Port      string
}

func NewHandler(opts Options, taps *service.TapService, claims *service.ClaimService,
	chips *service.ChipService, leads *service.LeadService) *Handler {
	h := &Handler{
		locator:   opts.Locator,
		signInURL: opts.SignInURL,
		port:      opts.Port,
		taps:      taps,
		claims:    claims,
		chips:     chips,
		leads:     leads,
	}
	h.InitAuth(opts.JWTSecret)
	return h
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "tap service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// serviceError maps a service failure onto a response.
func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	var ce service.ChipError
	if !errors.As(err, &ce) {
		log.Errorf("request failed: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusServiceUnavailable, Error: "service unavailable"})
		return
	}

	code := http.StatusBadRequest
	switch ce {
	case service.ErrChipNotRecognized, service.ErrChipNotFound:
		code = http.StatusNotFound
	case service.ErrAlreadyClaimed:
		code = http.StatusConflict
	case service.ErrUnauthenticated:
		code = http.StatusUnauthorized
	case service.ErrForbidden:
		code = http.StatusForbidden
	}
	h.CreateResponse(w, Response{Code: code, Error: err.Error()})
}

// identity reads the caller from a verified token. A missing or invalid
// token yields the anonymous identity.
func identity(r *http.Request) service.Identity {
	token, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || token == nil {
		return service.Identity{}
	}
	sub, _ := claims["sub"].(string)
	return service.Identity{Subject: sub}
}

func scanRequest(r *http.Request) scanlog.Request {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return scanlog.Request{IP: ip, UserAgent: r.UserAgent()}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, into any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(into)
}
