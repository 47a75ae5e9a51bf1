// internal/ws/hub.go
//
// WebSocket transport for the game core.
// Responsibilities:
//   - Upgrade connections, assign each an opaque uuid identity.
//   - Decode inbound frames into {event, data} envelopes and hand them to
//     the registered Handler; surface closed connections as disconnects.
//   - Provide the core's transport capability: unicast send, room-scoped
//     broadcast, and room membership management.
//
// Writes go through a buffered per-client channel drained by a writePump
// goroutine, so sends from the game core never block on a slow socket; a
// client that cannot keep up has its frames dropped with a warning.

package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const sendBuffer = 64

// Handler consumes decoded inbound traffic. The game coordinator
// implements it.
type Handler interface {
	HandleEvent(connID, event string, data json.RawMessage)
	HandleDisconnect(connID string)
}

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks live connections and room membership.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[int]map[string]*client
	handler Handler

	upgrader websocket.Upgrader
}

// NewHub constructs an empty hub. SetHandler must be called before serving.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[int]map[string]*client),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetHandler wires the inbound side. Separate from NewHub because the
// coordinator needs the hub as its transport while the hub needs the
// coordinator as its handler.
func (h *Hub) SetHandler(handler Handler) {
	h.handler = handler
}

// ServeWS upgrades the request and runs the connection's read loop until the
// peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	log.Info().Str("conn", c.id).Str("remote", conn.RemoteAddr().String()).Msg("connection established")

	go c.writePump()
	h.readLoop(c)
}

// readLoop decodes envelopes and dispatches them. Any read error means the
// connection is gone: unregister and report the disconnect exactly once.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.drop(c)
		h.handler.HandleDisconnect(c.id)
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Str("conn", c.id).Err(err).Msg("connection closed")
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Warn().Str("conn", c.id).Err(err).Msg("malformed frame")
			continue
		}
		if env.Event == "" {
			continue
		}
		h.handler.HandleEvent(c.id, env.Event, env.Data)
	}
}

// drop unregisters a client from the hub and every room it was in.
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	for roomID, members := range h.rooms {
		if _, ok := members[c.id]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	close(c.send)
	_ = c.conn.Close()
}

func (c *client) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Debug().Str("conn", c.id).Err(err).Msg("write failed")
			return
		}
	}
}

// --- transport capability ----------------------------------------------

// Send unicasts an event to one connection. The hub lock is held across the
// enqueue so a concurrent drop cannot close the channel mid-send.
func (h *Hub) Send(connID string, event string, payload any) {
	raw, ok := h.marshal(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.enqueue(c, event, raw)
	}
}

// Broadcast sends an event to every connection in the room.
func (h *Hub) Broadcast(roomID int, event string, payload any) {
	raw, ok := h.marshal(event, payload)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomID] {
		h.enqueue(c, event, raw)
	}
}

// JoinRoom adds the connection to a room's broadcast group.
func (h *Hub) JoinRoom(connID string, roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*client)
	}
	h.rooms[roomID][connID] = c
}

// LeaveRoom removes the connection from a room's broadcast group.
func (h *Hub) LeaveRoom(connID string, roomID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) marshal(event string, payload any) ([]byte, bool) {
	raw, err := json.Marshal(outEnvelope{Event: event, Data: payload})
	if err != nil {
		log.Error().Str("event", event).Err(err).Msg("marshal outbound frame")
		return nil, false
	}
	return raw, true
}

// enqueue drops the frame when the client's buffer is full.
func (h *Hub) enqueue(c *client, event string, raw []byte) {
	select {
	case c.send <- raw:
	default:
		log.Warn().Str("conn", c.id).Str("event", event).Msg("send buffer full, dropping frame")
	}
}
