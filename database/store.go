package database

import (
	"context"

	"github.com/chatbuddy/chatbuddy-backend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store adapts the raw collections to the loader interfaces the socket
// package consumes.
type Store struct{}

func (Store) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := OpenCollection("users").FindOne(ctx, bson.M{"_id": objID}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (Store) FindChatByID(ctx context.Context, id string) (*models.Chat, error) {
	objID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var chat models.Chat
	if err := OpenCollection("chats").FindOne(ctx, bson.M{"_id": objID}).Decode(&chat); err != nil {
		return nil, err
	}
	return &chat, nil
}
