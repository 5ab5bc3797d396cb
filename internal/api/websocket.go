package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-automator/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes a client to every event channel.
	WSChannelAll = "*"

	wsSendBufferSize = 256
)

// WSMessage is the envelope for every frame sent to a client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists the channels of a subscribe or unsubscribe.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsRequest is a frame received from a client.
type wsRequest struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// CORS middleware owns origin policy.
		return true
	},
}

// Hub relays automation events to subscribed WebSocket clients.
//
// A client's send channel is written and closed only under mu, so a relay
// racing a disconnect never sends on a closed channel.
type Hub struct {
	logger    *logging.Logger
	readLimit int64
	pingEvery time.Duration
	pongWait  time.Duration

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
}

// NewHub creates a hub using cfg's keepalive settings.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		logger:    logger,
		readLimit: int64(cfg.MaxMessageSize),
		pingEvery: time.Duration(cfg.PingInterval) * time.Second,
		pongWait:  time.Duration(cfg.PongTimeout) * time.Second,
		clients:   make(map[*wsClient]struct{}),
	}
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

// Broadcast sends an event frame to every client subscribed to channel.
// Slow clients whose buffer is full miss the event.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.wants(channel) {
			queue(c, data)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// reply queues data for c unless c has already been removed.
func (h *Hub) reply(c *wsClient, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; ok {
		queue(c, data)
	}
}

// queue must be called with the hub lock held.
func queue(c *wsClient, data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

// handleWebSocket upgrades the request and serves the event relay. Clients
// receive nothing until they subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, wsSendBufferSize),
		channels: make(map[string]struct{}),
	}
	s.hub.add(c)
	s.logger.Debug("websocket client connected", "clients", s.hub.ClientCount())

	go c.writeLoop()
	go c.readLoop()
}

func (c *wsClient) readLoop() {
	h := c.hub
	defer func() {
		h.remove(c)
		c.conn.Close()
		h.logger.Debug("websocket client disconnected", "clients", h.ClientCount())
	}()

	c.conn.SetReadLimit(h.readLimit)
	extend := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pingEvery + h.pongWait))
	}
	extend() //nolint:errcheck // a failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers may ignore protocol pings; any frame keeps the client alive.
		extend() //nolint:errcheck // a failed deadline surfaces as a read error
		c.handle(data)
	}
}

func (c *wsClient) writeLoop() {
	h := c.hub
	ticker := time.NewTicker(h.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	write := func(kind int, data []byte) error {
		c.conn.SetWriteDeadline(time.Now().Add(h.pongWait)) //nolint:errcheck // write error is checked
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				write(websocket.CloseMessage, nil) //nolint:errcheck // connection is going away
				return
			}
			if write(websocket.TextMessage, data) != nil {
				return
			}
		case <-ticker.C:
			if write(websocket.PingMessage, nil) != nil {
				return
			}
		}
	}
}

func (c *wsClient) handle(data []byte) {
	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.respond(WSTypeError, "", map[string]string{"message": "invalid JSON message"})
		return
	}

	switch req.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.updateChannels(req)
	case WSTypePing:
		c.respond(WSTypePong, req.ID, nil)
	default:
		c.respond(WSTypeError, req.ID, map[string]string{"message": "unknown message type: " + req.Type})
	}
}

func (c *wsClient) updateChannels(req wsRequest) {
	var sub WSSubscribePayload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &sub); err != nil {
			c.respond(WSTypeError, req.ID, map[string]string{"message": "invalid " + req.Type + " payload"})
			return
		}
	}

	subscribe := req.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, ch := range sub.Channels {
		if subscribe {
			c.channels[ch] = struct{}{}
		} else {
			delete(c.channels, ch)
		}
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if subscribe {
		key = "subscribed"
	}
	c.respond(WSTypeResponse, req.ID, map[string]any{key: sub.Channels})
}

func (c *wsClient) wants(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, all := c.channels[WSChannelAll]; all {
		return true
	}
	_, ok := c.channels[channel]
	return ok
}

func (c *wsClient) respond(msgType, id string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.hub.reply(c, data)
}
