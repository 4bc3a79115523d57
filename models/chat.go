package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Chat struct {
	ID           bson.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Name         string          `bson:"name" json:"name"`
	IsGroupChat  bool            `bson:"isGroupChat" json:"isGroupChat"`
	Participants []bson.ObjectID `bson:"participants" json:"-"`
	Admin        bson.ObjectID   `bson:"admin,omitempty" json:"admin"`
	LastMessage  bson.ObjectID   `bson:"lastMessage,omitempty" json:"-"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// HasParticipant reports whether userID is a current member of the chat.
func (c *Chat) HasParticipant(userID bson.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
