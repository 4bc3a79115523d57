package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Message is immutable once created; the owning chat's lastMessage pointer
// is updated in the same send operation.
type Message struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	Sender    bson.ObjectID `bson:"sender" json:"-"`
	Content   string        `bson:"content" json:"content"`
	Chat      bson.ObjectID `bson:"chat" json:"chat"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}
