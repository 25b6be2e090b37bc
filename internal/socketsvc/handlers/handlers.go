package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/chipsvc/store"
	"github.com/avvvet/tapchip-services/internal/comm"
	"github.com/avvvet/tapchip-services/internal/socketsvc/ws"
)

// Profiles resolves the token subject to the internal profile whose chips
// the socket may watch.
type Profiles interface {
	GetBySubject(ctx context.Context, subject string) (*models.User, error)
}

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
	profiles Profiles
	port     string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

// NewHandler accepts upgrades only from allowedOrigins; an empty list
// allows any origin.
func NewHandler(s *ws.Ws, profiles Profiles, allowedOrigins []string, port string) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		ws:       s,
		profiles: profiles,
		port:     port,
	}
	return h
}

func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowed) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, o := range allowed {
			if strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket authenticates the dashboard user, upgrades, and registers
// the socket under the user's profile id.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	sub, _ := claims["sub"].(string)
	if err != nil || sub == "" {
		h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "authentication required"})
		return
	}

	user, err := h.profiles.GetBySubject(r.Context(), sub)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.CreateResponse(w, Response{Code: http.StatusUnauthorized, Error: "no profile for token"})
			return
		}
		log.Errorf("profile lookup failed: %v", err)
		h.CreateResponse(w, Response{Code: http.StatusServiceUnavailable, Error: "profile lookup failed"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, user.ID, conn)

	log.Infof("New WebSocket connection established: %s (owner %s)", socketId, user.ID)

	if err := h.ws.SendData(socketId, comm.TypeReady, map[string]string{"socketid": socketId}); err != nil {
		log.Warnf("ready message to %s failed: %v", socketId, err)
	}

	// Handle WebSocket connection
	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	// Ensure cleanup happens when connection closes
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.ws.HandleDisconnect(socketId)
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			// Check if it's a normal close or unexpected error
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			break
		}

		// Parse the message
		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(socketId, "Invalid message format")
			continue // Don't break, just skip this message
		}

		log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)

		h.ws.SocketMessage(socketId, message)
	}
}

// sendErrorToClient sends an error message back to the WebSocket client
func (h *Handler) sendErrorToClient(socketId, errorMsg string) {
	if err := h.ws.SendData(socketId, comm.TypeError, map[string]string{"error": errorMsg}); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
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
		Message: "socket service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}

// Keepalive pings every socket so idle proxies keep the connection open.
func (h *Handler) Keepalive(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.ws.Broadcast(&comm.WSMessage{Type: "ping"})
		}
	}
}
