package socket

import (
	"context"
	"net/http"

	"github.com/chatbuddy/chatbuddy-backend/metrics"
	"github.com/chatbuddy/chatbuddy-backend/models"
	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// UserLoader and ChatLoader are the slices of the persistence layer the
// socket package needs; keeping them as interfaces decouples the gate from
// the database package.
type UserLoader interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

type ChatLoader interface {
	FindChatByID(ctx context.Context, id string) (*models.Chat, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handshakeToken extracts the access token the handshake presents, from the
// accessToken cookie first, then the token query field.
func handshakeToken(r *http.Request) string {
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

// Serve upgrades the connection and runs the gate: verify the handshake
// credential, load the user, join the identity room. A rejected connection
// is told why via a single socketError event and joins no room; the
// transport stays open for the client to observe the error.
func Serve(hub *Hub, users UserLoader, chats ChatLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade")
			return
		}

		client := &Client{
			id:    uuid.NewString(),
			hub:   hub,
			conn:  conn,
			send:  make(chan []byte, 256),
			done:  make(chan struct{}),
			chats: chats,
			rooms: make(map[string]bool),
		}
		go client.writePump()

		token := handshakeToken(c.Request)
		if token == "" {
			client.enqueue(SocketErrorEvent, "Un-authorized handshake. Token is missing")
			client.readPump()
			return
		}

		claims, err := utils.ValidateAccessToken(token)
		if err != nil {
			client.enqueue(SocketErrorEvent, "Un-authorized handshake. Token is invalid")
			client.readPump()
			return
		}

		user, err := users.FindUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			client.enqueue(SocketErrorEvent, "Un-authorized handshake. Token is invalid")
			client.readPump()
			return
		}

		client.userID = user.ID.Hex()
		hub.Join(client, client.userID)
		client.enqueue(ConnectedEvent, user.Public())

		metrics.SocketConnections.Inc()
		log.Info().Str("conn", client.id).Str("user", client.userID).Msg("socket connected")

		client.readPump()

		metrics.SocketConnections.Dec()
		log.Info().Str("conn", client.id).Str("user", client.userID).Msg("socket disconnected")
	}
}

func chatHasParticipantHex(chat *models.Chat, userIDHex string) bool {
	for _, p := range chat.Participants {
		if p.Hex() == userIDHex {
			return true
		}
	}
	return false
}
