// Package ws pushes navigation events to browser clients over WebSocket.
//
// A client connects, sends {"token": "<jwt>"} as its first message within
// authTimeout, and from then on receives every event published for its
// user as {"type": ..., "data": ..., "sent_at": ...}. Clients may also send
// {"type": ..., "data": ...} messages, which are handed to the MessageHandler.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/endlessworld/campusnav/internal/api/metrics"
)

const (
	authTimeout    = 5 * time.Second
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 8192
	sendBuffer     = 256
)

// ErrSendBufferFull is returned when a client is not draining its events.
var ErrSendBufferFull = errors.New("ws: client send buffer full")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token handshake authenticates the client; origin is not checked.
	CheckOrigin: func(*http.Request) bool { return true },
}

// AuthFunc validates a token and returns the user it belongs to.
type AuthFunc func(token string) (userID, role string, err error)

// MessageHandler is called for every message a client sends after auth.
type MessageHandler func(c *Client, messageType string, data json.RawMessage) error

// Envelope is the wire format of every server-to-client event.
type Envelope struct {
	Type   string    `json:"type"`
	Data   any       `json:"data,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// Client is one authenticated connection.
type Client struct {
	ID     string
	UserID string
	Role   string

	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub tracks live connections by user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client

	auth    AuthFunc
	handler MessageHandler
	log     zerolog.Logger
}

func NewHub(auth AuthFunc, log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		auth:    auth,
		log:     log.With().Str("component", "ws").Logger(),
	}
}

// SetMessageHandler installs the handler for client messages. Call it before
// serving connections.
func (h *Hub) SetMessageHandler(handler MessageHandler) {
	h.handler = handler
}

// Publish sends an event to every connection of userID. A user with no open
// connection is not an error; the event is dropped.
func (h *Hub) Publish(userID, eventType string, data any) error {
	msg, err := json.Marshal(Envelope{Type: eventType, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var sendErr error
	for _, c := range h.clients {
		if c.UserID != userID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			sendErr = ErrSendBufferFull
			h.log.Warn().Str("client_id", c.ID).Str("user_id", userID).Str("event", eventType).Msg("dropping event for slow client")
		}
	}
	return sendErr
}

// Send writes an event to this connection only.
func (c *Client) Send(eventType string, data any) error {
	msg, err := json.Marshal(Envelope{Type: eventType, Data: data, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return nil
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
		metrics.ActiveConnections.Dec()
	}
}

// ServeWS upgrades the request and runs the token handshake.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	var authMsg struct {
		Token string `json:"token"`
	}
	if err := conn.ReadJSON(&authMsg); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "auth timeout"))
		_ = conn.Close()
		h.log.Debug().Err(err).Msg("no auth message received")
		return
	}

	userID, role, err := h.auth(authMsg.Token)
	if err != nil {
		_ = conn.WriteJSON(map[string]string{"error": "invalid token"})
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"))
		_ = conn.Close()
		h.log.Debug().Err(err).Msg("websocket auth rejected")
		return
	}

	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    h,
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Events published from here on wait in the send buffer; the ack is
	// written before the pumps start so it is always first.
	h.register(c)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(map[string]string{"status": "authenticated", "user_id": userID}); err != nil {
		h.unregister(c)
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	metrics.ActiveConnections.Inc()
	h.log.Info().Str("client_id", c.ID).Str("user_id", c.UserID).Msg("client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		metrics.ActiveConnections.Dec()
		h.log.Info().Str("client_id", c.ID).Str("user_id", c.UserID).Msg("client disconnected")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn().Err(err).Str("client_id", c.ID).Msg("websocket read error")
			}
			return
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data,omitempty"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.log.Debug().Err(err).Str("client_id", c.ID).Msg("malformed client message")
			continue
		}
		if c.hub.handler == nil {
			continue
		}
		if err := c.hub.handler(c, msg.Type, msg.Data); err != nil {
			c.hub.log.Debug().Err(err).Str("client_id", c.ID).Str("msg_type", msg.Type).Msg("client message rejected")
			_ = c.Send("error", map[string]string{"type": msg.Type, "error": err.Error()})
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
