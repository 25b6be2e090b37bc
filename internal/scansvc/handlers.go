package scansvc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	maxListLimit  = 500
)

// Reader is the query side of the archive.
type Reader interface {
	ListByChip(ctx context.Context, chipID string, since time.Time, limit int64) ([]models.ScanEvent, error)
	CountByDevice(ctx context.Context, chipID string, since time.Time) ([]DeviceCount, error)
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	archive   Reader
	port      string
	now       func() time.Time
}

func NewHandler(secret, port string, archive Reader) *Handler {
	return &Handler{
		tokenAuth: jwtauth.New("HS256", []byte(secret), nil),
		archive:   archive,
		port:      port,
		now:       time.Now,
	}
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

// The archive API is for internal services only: tokens must carry a
// service_id claim.
func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
			r.Use(requireService)

			r.Get("/chips/{id}/scans", h.ListScans)
			r.Get("/chips/{id}/devices", h.DeviceCounts)
		})
	})
}

func requireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, _ := jwtauth.FromContext(r.Context())
		if _, ok := claims["service_id"]; !ok {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "scan archive service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// since reads ?days=N, defaulting to the last 30 days.
func (h *Handler) since(r *http.Request) time.Time {
	window := defaultWindow
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		window = time.Duration(d) * 24 * time.Hour
	}
	return h.now().Add(-window)
}

func (h *Handler) ListScans(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)
	if err != nil || limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	events, err := h.archive.ListByChip(r.Context(), chi.URLParam(r, "id"), h.since(r), limit)
	if err != nil {
		log.Errorf("archive query failed: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusServiceUnavailable, Error: "archive unavailable"})
		return
	}
	if events == nil {
		events = []models.ScanEvent{}
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: events})
}

func (h *Handler) DeviceCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.archive.CountByDevice(r.Context(), chi.URLParam(r, "id"), h.since(r))
	if err != nil {
		log.Errorf("archive aggregate failed: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusServiceUnavailable, Error: "archive unavailable"})
		return
	}
	if counts == nil {
		counts = []DeviceCount{}
	}
	h.CreateResponse(w, Response{Code: http.StatusOK, Data: counts})
}
