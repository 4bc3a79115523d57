package socket

import (
	"encoding/json"
	"sync"

	"github.com/chatbuddy/chatbuddy-backend/metrics"
	"github.com/rs/zerolog/log"
)

// Hub owns the process-local room table. A room is keyed either by a user id
// (the identity room holding all of one user's live connections) or by a
// chat id (connections actively viewing that chat). Created once at startup;
// nothing outside the Hub mutates the table.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

// Join is idempotent; joining a room twice is a no-op.
func (h *Hub) Join(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room := h.rooms[roomID]
	if room == nil {
		room = make(map[*Client]bool)
		h.rooms[roomID] = room
	}
	room[c] = true
	c.rooms[roomID] = true
}

func (h *Hub) Leave(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, roomID)
	delete(c.rooms, roomID)
}

// LeaveAll detaches a connection from every room it joined; invoked on
// disconnect.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range c.rooms {
		h.removeFromRoom(c, roomID)
		delete(c.rooms, roomID)
	}
}

func (h *Hub) removeFromRoom(c *Client, roomID string) {
	room := h.rooms[roomID]
	if room == nil {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) RoomSize(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

func (h *Hub) InRoom(c *Client, roomID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return c.rooms[roomID]
}

// EmitToRoom delivers the event to every connection currently in the room,
// including the caller's own connection if present. Delivery is best-effort
// and at-most-once; a connection with a saturated send buffer is dropped.
func (h *Hub) EmitToRoom(roomID, event string, payload any) {
	h.emit(roomID, event, payload, "")
}

// EmitToRoomExcept is EmitToRoom minus connections owned by exceptUserID.
func (h *Hub) EmitToRoomExcept(roomID, event string, payload any, exceptUserID string) {
	h.emit(roomID, event, payload, exceptUserID)
}

func (h *Hub) emit(roomID, event string, payload any, exceptUserID string) {
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal socket event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	metrics.EventsEmittedTotal.WithLabelValues(event).Inc()
	for c := range h.rooms[roomID] {
		if exceptUserID != "" && c.userID == exceptUserID {
			continue
		}
		select {
		case c.send <- frame:
		default:
			// Slow consumer; drop the connection rather than block the hub.
			// The send channel stays open so racing senders never panic;
			// closing done makes writePump tear the transport down.
			c.close()
			for rid := range c.rooms {
				h.removeFromRoom(c, rid)
			}
			c.rooms = make(map[string]bool)
		}
	}
}

// BroadcastToParticipants applies the fan-out policy for chat and message
// events: each participant's identity room is targeted, except the acting
// user who already holds the data via the HTTP response.
func BroadcastToParticipants(h *Hub, participantIDs []string, actorID, event string, payload any) {
	for _, id := range participantIDs {
		if id == actorID {
			continue
		}
		h.EmitToRoom(id, event, payload)
	}
}
