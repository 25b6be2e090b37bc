// Package ws tracks dashboard sockets by the profile that opened them.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/tapchip-services/internal/comm"
)

// Client is one dashboard socket. Writes are serialized because the read
// loop and the broker both write.
type Client struct {
	OwnerID string
	conn    *websocket.Conn
	mu      sync.Mutex
}

// writeWait bounds a single write so a stalled peer cannot hold up the
// broker's fan-out to other owners.
var writeWait = 10 * time.Second

func (c *Client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteJSON(v); err != nil {
		// the read loop sees the close and unregisters the socket
		c.conn.Close()
		return err
	}
	return nil
}

type Ws struct {
	connMap  sync.Map // socketId -> *Client
	ownerMap sync.Map // socketId -> owner id
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case "ping":
		if err := s.Send(socketId, &comm.WSMessage{Type: "pong"}); err != nil {
			log.Warnf("pong to %s failed: %v", socketId, err)
		}
	default:
		log.Warnf("unknown event received: %s", message.Type)
	}
}

func (s *Ws) StoreConnection(socketId, ownerID string, conn *websocket.Conn) *Client {
	c := &Client{OwnerID: ownerID, conn: conn}
	s.connMap.Store(socketId, c)
	s.ownerMap.Store(socketId, ownerID)
	return c
}

func (s *Ws) GetConnection(socketId string) (*Client, bool) {
	c, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return c.(*Client), true
}

// GetOwnerSockets lists the sockets opened by ownerID.
func (s *Ws) GetOwnerSockets(ownerID string) []string {
	var sockets []string
	s.ownerMap.Range(func(key, value interface{}) bool {
		if value.(string) == ownerID {
			sockets = append(sockets, key.(string))
		}
		return true // continue iterating
	})
	return sockets
}

// Send writes m to one socket. Unknown sockets are ignored.
func (s *Ws) Send(socketId string, m *comm.WSMessage) error {
	c, ok := s.GetConnection(socketId)
	if !ok {
		return nil
	}
	return c.WriteJSON(m)
}

// SendData wraps payload in a message of msgType and writes it.
func (s *Ws) SendData(socketId, msgType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.Send(socketId, &comm.WSMessage{Type: msgType, Data: data})
}

// Broadcast writes m to every socket, dropping ones that fail.
func (s *Ws) Broadcast(m *comm.WSMessage) {
	s.connMap.Range(func(key, value interface{}) bool {
		if err := value.(*Client).WriteJSON(m); err != nil {
			log.Debugf("broadcast to %s failed: %v", key, err)
		}
		return true
	})
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.ownerMap.Delete(socketId)
}
