package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chatbuddy/chatbuddy-backend/models"
	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type fakeStore struct {
	users map[string]*models.User
	chats map[string]*models.Chat
}

func (s *fakeStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (s *fakeStore) FindChatByID(ctx context.Context, id string) (*models.Chat, error) {
	if c, ok := s.chats[id]; ok {
		return c, nil
	}
	return nil, errors.New("chat not found")
}

func newSocketServer(t *testing.T, hub *Hub, store *fakeStore) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", Serve(hub, store, store))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dialSocket(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", u, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal frame %q: %v", data, err)
	}
	return env
}

func sendEvent(t *testing.T, conn *websocket.Conn, event, payload string) {
	t.Helper()
	frame, _ := json.Marshal(map[string]string{"event": event, "payload": payload})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func seedStore() (*fakeStore, *models.User, *models.Chat) {
	user := &models.User{
		ID:       bson.NewObjectID(),
		Username: "alice",
		Email:    "alice@example.com",
	}
	chat := &models.Chat{
		ID:           bson.NewObjectID(),
		Name:         "One on one chat",
		Participants: []bson.ObjectID{user.ID, bson.NewObjectID()},
	}
	store := &fakeStore{
		users: map[string]*models.User{user.ID.Hex(): user},
		chats: map[string]*models.Chat{chat.ID.Hex(): chat},
	}
	return store, user, chat
}

func TestServe_MissingToken(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
	store, _, _ := seedStore()
	hub := NewHub()
	srv := newSocketServer(t, hub, store)

	conn := dialSocket(t, srv, "")

	env := readEvent(t, conn)
	if env.Event != SocketErrorEvent {
		t.Fatalf("event = %q, want %q", env.Event, SocketErrorEvent)
	}
	if env.Payload != "Un-authorized handshake. Token is missing" {
		t.Errorf("payload = %v", env.Payload)
	}
}

func TestServe_InvalidToken(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
	store, _, _ := seedStore()
	hub := NewHub()
	srv := newSocketServer(t, hub, store)

	conn := dialSocket(t, srv, "not-a-jwt")

	env := readEvent(t, conn)
	if env.Event != SocketErrorEvent {
		t.Fatalf("event = %q, want %q", env.Event, SocketErrorEvent)
	}
	if env.Payload != "Un-authorized handshake. Token is invalid" {
		t.Errorf("payload = %v", env.Payload)
	}
}

func TestServe_AdmitsAndJoinsIdentityRoom(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
	store, user, _ := seedStore()
	hub := NewHub()
	srv := newSocketServer(t, hub, store)

	token, err := utils.GenerateAccessToken(user.ID.Hex(), user.Email, user.Username)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	conn := dialSocket(t, srv, token)

	env := readEvent(t, conn)
	if env.Event != ConnectedEvent {
		t.Fatalf("event = %q, want %q", env.Event, ConnectedEvent)
	}
	payload, ok := env.Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want object", env.Payload)
	}
	if payload["username"] != "alice" {
		t.Errorf("payload username = %v, want alice", payload["username"])
	}
	if payload["_id"] != user.ID.Hex() {
		t.Errorf("payload _id = %v, want %s", payload["_id"], user.ID.Hex())
	}

	waitForRoomSize(t, hub, user.ID.Hex(), 1)
}

func TestServe_JoinChatMembership(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
	store, user, chat := seedStore()
	intruder := &models.Chat{
		ID:           bson.NewObjectID(),
		Participants: []bson.ObjectID{bson.NewObjectID(), bson.NewObjectID()},
	}
	store.chats[intruder.ID.Hex()] = intruder
	hub := NewHub()
	srv := newSocketServer(t, hub, store)

	token, err := utils.GenerateAccessToken(user.ID.Hex(), user.Email, user.Username)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	conn := dialSocket(t, srv, token)
	readEvent(t, conn) // connected

	sendEvent(t, conn, JoinChatEvent, chat.ID.Hex())
	waitForRoomSize(t, hub, chat.ID.Hex(), 1)

	// A chat the user is not part of must be refused.
	sendEvent(t, conn, JoinChatEvent, intruder.ID.Hex())
	env := readEvent(t, conn)
	if env.Event != SocketErrorEvent {
		t.Fatalf("event = %q, want %q", env.Event, SocketErrorEvent)
	}
	if env.Payload != "You are not a participant of this chat" {
		t.Errorf("payload = %v", env.Payload)
	}
	if got := hub.RoomSize(intruder.ID.Hex()); got != 0 {
		t.Errorf("intruder room size = %d, want 0", got)
	}

	sendEvent(t, conn, JoinChatEvent, bson.NewObjectID().Hex())
	env = readEvent(t, conn)
	if env.Event != SocketErrorEvent || env.Payload != "Chat does not exist" {
		t.Errorf("event = %+v, want socketError for unknown chat", env)
	}
}

func TestServe_TypingRelayRequiresRoomMembership(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
	store, alice, chat := seedStore()
	bob := &models.User{
		ID:       chat.Participants[1],
		Username: "bob",
		Email:    "bob@example.com",
	}
	store.users[bob.ID.Hex()] = bob
	hub := NewHub()
	srv := newSocketServer(t, hub, store)

	dial := func(u *models.User) *websocket.Conn {
		token, err := utils.GenerateAccessToken(u.ID.Hex(), u.Email, u.Username)
		if err != nil {
			t.Fatalf("GenerateAccessToken() error = %v", err)
		}
		conn := dialSocket(t, srv, token)
		readEvent(t, conn) // connected
		return conn
	}
	aliceConn := dial(alice)
	bobConn := dial(bob)

	// An admitted participant who never joined the chat room cannot relay
	// into it.
	sendEvent(t, aliceConn, TypingEvent, chat.ID.Hex())
	env := readEvent(t, aliceConn)
	if env.Event != SocketErrorEvent || env.Payload != "You are not a participant of this chat" {
		t.Fatalf("event = %+v, want socketError for unjoined room", env)
	}

	sendEvent(t, aliceConn, JoinChatEvent, chat.ID.Hex())
	sendEvent(t, bobConn, JoinChatEvent, chat.ID.Hex())
	waitForRoomSize(t, hub, chat.ID.Hex(), 2)

	sendEvent(t, aliceConn, TypingEvent, chat.ID.Hex())
	env = readEvent(t, bobConn)
	if env.Event != TypingEvent {
		t.Fatalf("event = %q, want %q", env.Event, TypingEvent)
	}
	if env.Payload != chat.ID.Hex() {
		t.Errorf("payload = %v, want %s", env.Payload, chat.ID.Hex())
	}

	sendEvent(t, bobConn, StopTypingEvent, chat.ID.Hex())
	env = readEvent(t, aliceConn)
	if env.Event != StopTypingEvent {
		t.Errorf("event = %q, want %q", env.Event, StopTypingEvent)
	}
}

func TestServe_UnadmittedEventsIgnored(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_SECRET", "test-secret")
	store, _, chat := seedStore()
	hub := NewHub()
	srv := newSocketServer(t, hub, store)

	conn := dialSocket(t, srv, "")
	readEvent(t, conn) // socketError for the missing token

	sendEvent(t, conn, JoinChatEvent, chat.ID.Hex())

	time.Sleep(100 * time.Millisecond)
	if got := hub.RoomSize(chat.ID.Hex()); got != 0 {
		t.Errorf("room size = %d, want 0 for rejected connection", got)
	}
}

func waitForRoomSize(t *testing.T, hub *Hub, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.RoomSize(roomID) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("room %q size = %d, want %d", roomID, hub.RoomSize(roomID), want)
}
