package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/locum-staffing/models"
	"github.com/yeremiapane/locum-staffing/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// Message is the frame written to every websocket subscriber.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Client is one websocket subscriber. Managers see every event, staff only their own.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	UserID uint
	Role   string
}

func (c *Client) wants(event *models.AssignmentEvent) bool {
	if c.Role == models.RoleHR || c.Role == models.RoleAdmin {
		return true
	}
	return event.UserID != nil && *event.UserID == c.UserID
}

// Hub fans out assignment events to connected clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) register(conn *websocket.Conn, userID uint, role string) *Client {
	c := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		UserID: userID,
		Role:   role,
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	utils.InfoLogger.WithFields(logrus.Fields{"user_id": userID, "role": role}).Info("live feed client connected")
	return c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish delivers an outbox event to the clients allowed to see it and returns how many
// were reached. Clients that cannot keep up are dropped.
func (h *Hub) Publish(event models.AssignmentEvent) int {
	data, err := json.Marshal(Message{Event: event.Kind, Data: event})
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("event_id", event.ID).Error("marshal live feed event")
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients {
		if !c.wants(&event) {
			continue
		}
		select {
		case c.send <- data:
			sent++
		default:
			delete(h.clients, c)
			close(c.send)
			utils.ErrorLogger.WithField("user_id", c.UserID).Warn("live feed client too slow, dropped")
		}
	}
	return sent
}

// Serve owns conn until the peer goes away.
func (h *Hub) Serve(conn *websocket.Conn, userID uint, role string) {
	c := h.register(conn, userID, role)
	go c.writePump()
	c.readPump()
}

// readPump only processes control frames; subscribers never send data.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		utils.InfoLogger.WithField("user_id", c.UserID).Info("live feed client disconnected")
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
