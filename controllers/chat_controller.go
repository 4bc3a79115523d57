package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/chatbuddy/chatbuddy-backend/database"
	"github.com/chatbuddy/chatbuddy-backend/dto"
	"github.com/chatbuddy/chatbuddy-backend/middleware"
	"github.com/chatbuddy/chatbuddy-backend/models"
	"github.com/chatbuddy/chatbuddy-backend/socket"
	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const oneOnOneChatName = "One on one chat"

// loadPublicUsers resolves a set of user ids to password-free profiles.
func loadPublicUsers(ctx context.Context, ids []bson.ObjectID) (map[bson.ObjectID]models.PublicUser, error) {
	out := make(map[bson.ObjectID]models.PublicUser, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := database.OpenCollection("users").Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	for cursor.Next(ctx) {
		var u models.User
		if err := cursor.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u.Public()
	}
	return out, cursor.Err()
}

// hydrateChats joins participants and last messages onto raw chat documents
// so the client receives everything its list view renders.
func hydrateChats(ctx context.Context, chats []models.Chat) ([]dto.ChatResponse, error) {
	userIDSet := make(map[bson.ObjectID]bool)
	messageIDs := make([]bson.ObjectID, 0, len(chats))
	for _, chat := range chats {
		for _, p := range chat.Participants {
			userIDSet[p] = true
		}
		if !chat.LastMessage.IsZero() {
			messageIDs = append(messageIDs, chat.LastMessage)
		}
	}

	lastMessages := make(map[bson.ObjectID]models.Message, len(messageIDs))
	if len(messageIDs) > 0 {
		cursor, err := database.OpenCollection("chatmessages").Find(ctx, bson.M{"_id": bson.M{"$in": messageIDs}})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)
		for cursor.Next(ctx) {
			var m models.Message
			if err := cursor.Decode(&m); err != nil {
				return nil, err
			}
			lastMessages[m.ID] = m
			userIDSet[m.Sender] = true
		}
		if err := cursor.Err(); err != nil {
			return nil, err
		}
	}

	userIDs := make([]bson.ObjectID, 0, len(userIDSet))
	for id := range userIDSet {
		userIDs = append(userIDs, id)
	}
	users, err := loadPublicUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ChatResponse, 0, len(chats))
	for _, chat := range chats {
		resp := dto.ChatResponse{
			ID:           chat.ID,
			Name:         chat.Name,
			IsGroupChat:  chat.IsGroupChat,
			Participants: make([]models.PublicUser, 0, len(chat.Participants)),
			Admin:        chat.Admin,
			CreatedAt:    chat.CreatedAt,
			UpdatedAt:    chat.UpdatedAt,
		}
		for _, p := range chat.Participants {
			if u, ok := users[p]; ok {
				resp.Participants = append(resp.Participants, u)
			}
		}
		if m, ok := lastMessages[chat.LastMessage]; ok {
			resp.LastMessage = &dto.MessageResponse{
				ID:        m.ID,
				Sender:    users[m.Sender],
				Content:   m.Content,
				Chat:      m.Chat,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			}
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func hydrateChat(ctx context.Context, chat models.Chat) (dto.ChatResponse, error) {
	responses, err := hydrateChats(ctx, []models.Chat{chat})
	if err != nil {
		return dto.ChatResponse{}, err
	}
	return responses[0], nil
}

// GetAllChats lists every chat the caller participates in, most recently
// active first.
func GetAllChats() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		chatsCol := database.OpenCollection("chats")
		opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
		cursor, err := chatsCol.Find(c, bson.M{"participants": bson.M{"$elemMatch": bson.M{"$eq": userID}}}, opts)
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer cursor.Close(c)

		var chats []models.Chat
		if err := cursor.All(c, &chats); err != nil {
			_ = c.Error(err)
			return
		}

		responses, err := hydrateChats(c, chats)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, utils.NewApiResponse(http.StatusOK, responses, "User chats fetched successfully!"))
	}
}

// SearchAvailableUsers returns every user except the caller, for starting
// new chats.
func SearchAvailableUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		cursor, err := database.OpenCollection("users").Find(c, bson.M{"_id": bson.M{"$ne": userID}})
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer cursor.Close(c)

		users := make([]models.PublicUser, 0)
		for cursor.Next(c) {
			var u models.User
			if err := cursor.Decode(&u); err != nil {
				_ = c.Error(err)
				return
			}
			users = append(users, u.Public())
		}
		if err := cursor.Err(); err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, utils.NewApiResponse(http.StatusOK, users, "Users fetched successfully"))
	}
}

// CreateOrGetAOneOnOneChat returns the existing one-on-one chat for the
// caller/receiver pair or creates it. At most one such chat exists per
// unordered pair of users.
func CreateOrGetAOneOnOneChat(hub *socket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		receiverID, err := bson.ObjectIDFromHex(c.Param("receiverId"))
		if err != nil {
			_ = c.Error(utils.NewNotFoundError("Receiver does not exist"))
			return
		}

		var receiver models.User
		usersCol := database.OpenCollection("users")
		if err := usersCol.FindOne(c, bson.M{"_id": receiverID}).Decode(&receiver); err != nil {
			_ = c.Error(utils.NewNotFoundError("Receiver does not exist"))
			return
		}

		if receiverID == userID {
			_ = c.Error(utils.NewApiError(http.StatusBadRequest, "You cannot chat with yourself"))
			return
		}

		chatsCol := database.OpenCollection("chats")
		var existing models.Chat
		err = chatsCol.FindOne(c, bson.M{
			"isGroupChat": false,
			"$and": bson.A{
				bson.M{"participants": bson.M{"$elemMatch": bson.M{"$eq": userID}}},
				bson.M{"participants": bson.M{"$elemMatch": bson.M{"$eq": receiverID}}},
			},
		}).Decode(&existing)
		if err == nil {
			payload, herr := hydrateChat(c, existing)
			if herr != nil {
				_ = c.Error(herr)
				return
			}
			c.JSON(http.StatusOK, utils.NewApiResponse(http.StatusOK, payload, "Chat retrieved successfully"))
			return
		}
		if err != mongo.ErrNoDocuments {
			_ = c.Error(err)
			return
		}

		now := time.Now().UTC()
		chat := models.Chat{
			Name:         oneOnOneChatName,
			IsGroupChat:  false,
			Participants: []bson.ObjectID{userID, receiverID},
			Admin:        userID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		result, err := chatsCol.InsertOne(c, chat)
		if err != nil {
			_ = c.Error(err)
			return
		}
		chat.ID = result.InsertedID.(bson.ObjectID)

		payload, err := hydrateChat(c, chat)
		if err != nil {
			_ = c.Error(err)
			return
		}

		// The creator already has the chat via this response.
		socket.BroadcastToParticipants(hub, participantHexIDs(chat.Participants), userID.Hex(), socket.NewChatEvent, payload)

		c.JSON(http.StatusCreated, utils.NewApiResponse(http.StatusCreated, payload, "Chat created successfully"))
	}
}

func participantHexIDs(ids []bson.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
