package socket

// Server-emitted and client-emitted event names shared with the web app.
const (
	ConnectedEvent       = "connected"
	SocketErrorEvent     = "socketError"
	JoinChatEvent        = "joinChat"
	TypingEvent          = "typing"
	StopTypingEvent      = "stopTyping"
	MessageReceivedEvent = "messageReceived"
	NewChatEvent         = "newChat"
	ForcedLogoutEvent    = "forcedLogout"
)

// Envelope is the wire format of every frame in both directions.
type Envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// inboundEvent covers every client-emitted event; they all carry a chat id.
type inboundEvent struct {
	Event   string `json:"event"`
	Payload string `json:"payload"`
}
