package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 1 << 16
)

// Client is one websocket connection. userID is set only once the
// connection gate admits it; un-admitted connections stay out of every room
// and their inbound events are ignored.
type Client struct {
	id        string
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	userID    string
	chats     ChatLoader
	rooms     map[string]bool // guarded by hub.mu
	closeOnce sync.Once
}

// close signals writePump to shut the connection down. The send channel is
// never closed; senders race against close and must stay safe either way.
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) admitted() bool {
	return c.userID != ""
}

// enqueue targets this connection only, bypassing the room table. Used for
// connection-scoped events: connected, socketError.
func (c *Client) enqueue(event string, payload any) {
	frame, err := json.Marshal(Envelope{Event: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal socket event")
		return
	}
	select {
	case <-c.done:
	case c.send <- frame:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.LeaveAll(c)
		c.close()
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var in inboundEvent
		if err := json.Unmarshal(data, &in); err != nil {
			continue
		}
		c.dispatch(in)
	}
}

// dispatch processes client events in arrival order, one at a time per
// connection.
func (c *Client) dispatch(in inboundEvent) {
	if !c.admitted() {
		return
	}
	switch in.Event {
	case JoinChatEvent:
		c.joinChat(in.Payload)
	case TypingEvent, StopTypingEvent:
		// Relayed only to the chat room, never persisted; the sender's own
		// connections are excluded. A connection relays only into rooms it
		// has actually joined.
		if !c.hub.InRoom(c, in.Payload) {
			c.enqueue(SocketErrorEvent, "You are not a participant of this chat")
			return
		}
		c.hub.EmitToRoomExcept(in.Payload, in.Event, in.Payload, c.userID)
	}
}

// joinChat admits the connection to a chat-scoped room after verifying the
// user is a participant of that chat.
func (c *Client) joinChat(chatID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chat, err := c.chats.FindChatByID(ctx, chatID)
	if err != nil {
		c.enqueue(SocketErrorEvent, "Chat does not exist")
		return
	}
	if !chatHasParticipantHex(chat, c.userID) {
		c.enqueue(SocketErrorEvent, "You are not a participant of this chat")
		return
	}
	c.hub.Join(c, chatID)
	log.Debug().Str("conn", c.id).Str("user", c.userID).Str("chat", chatID).Msg("joined chat room")
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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
