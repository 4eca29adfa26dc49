// Package hub owns the live connection registry and per-room fan-out.
// Membership mutations and broadcasts are serialized on one lock, which
// is what keeps every member of a room observing message broadcasts in
// enqueue order.
package hub

import (
	"sync"

	"github.com/gatherly/chat-service/pkg/logging"
)

type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client          // conn id -> client
	rooms   map[string]map[*Client]bool // room id -> members
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]bool),
	}
}

// Register adds a connection to the hub. It carries no room membership
// until JoinRoom is called.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()

	lg := logging.L(); lg.Debug().Str(logging.FieldConnID, c.ID).Msg("client registered")
}

// Unregister removes a connection from the hub and from its room, and
// closes its send channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	h.removeFromRoomLocked(c)
	close(c.Send)
	h.mu.Unlock()

	lg := logging.L(); lg.Debug().Str(logging.FieldConnID, c.ID).Msg("client unregistered")
}

// SendTo enqueues data for one connection. Sends are gated on the
// client still being registered so nothing ever writes to a closed send
// channel.
func (h *Hub) SendTo(c *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		lg := logging.L(); lg.Warn().Str(logging.FieldConnID, c.ID).Msg("send buffer full, frame dropped")
	}
}

// JoinRoom moves a connection into a room, leaving any previous room.
// A connection belongs to at most one room at a time. Unregistered
// connections cannot join.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	h.removeFromRoomLocked(c)

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	c.room = roomID
}

// LeaveRoom removes a connection from its room, reporting which room it
// left. Connections not in any room report "".
func (h *Hub) LeaveRoom(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := c.room
	h.removeFromRoomLocked(c)
	return room
}

func (h *Hub) removeFromRoomLocked(c *Client) {
	if c.room == "" {
		return
	}
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.room = ""
}

// Members returns the connections currently in a room.
func (h *Hub) Members(roomID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		members = append(members, c)
	}
	return members
}

// BroadcastToRoom delivers data to every connection currently in the
// room, except exclude when non-nil. Delivery to each connection is
// non-blocking: a client whose send buffer is full is dropped rather
// than stalling the rest of the room.
func (h *Hub) BroadcastToRoom(roomID string, data []byte, exclude *Client) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.rooms[roomID] {
		if c == exclude {
			continue
		}
		select {
		case c.Send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		lg := logging.L(); lg.Warn().Str(logging.FieldConnID, c.ID).Msg("send buffer full, dropping client")
		go h.Unregister(c)
	}
}

// BroadcastAll delivers data to every connection regardless of room,
// used by the mock activity feed.
func (h *Hub) BroadcastAll(data []byte) {
	h.mu.RLock()
	var slow []*Client
	for _, c := range h.clients {
		select {
		case c.Send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		lg := logging.L(); lg.Warn().Str(logging.FieldConnID, c.ID).Msg("send buffer full, dropping client")
		go h.Unregister(c)
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
