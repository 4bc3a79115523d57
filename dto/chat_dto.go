package dto

import (
	"time"

	"github.com/chatbuddy/chatbuddy-backend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// MessageResponse is a message with its sender hydrated to a public profile.
type MessageResponse struct {
	ID        bson.ObjectID     `json:"_id"`
	Sender    models.PublicUser `json:"sender"`
	Content   string            `json:"content"`
	Chat      bson.ObjectID     `json:"chat"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// ChatResponse is a chat with participants hydrated to public profiles and
// the last message embedded, mirroring what the client list view renders.
type ChatResponse struct {
	ID           bson.ObjectID       `json:"_id"`
	Name         string              `json:"name"`
	IsGroupChat  bool                `json:"isGroupChat"`
	Participants []models.PublicUser `json:"participants"`
	Admin        bson.ObjectID       `json:"admin,omitempty"`
	LastMessage  *MessageResponse    `json:"lastMessage,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type SendMessageDTO struct {
	Content string `json:"content" binding:"required"`
}
