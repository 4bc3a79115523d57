package controllers

import (
	"net/http"
	"time"

	"github.com/chatbuddy/chatbuddy-backend/database"
	"github.com/chatbuddy/chatbuddy-backend/dto"
	"github.com/chatbuddy/chatbuddy-backend/metrics"
	"github.com/chatbuddy/chatbuddy-backend/middleware"
	"github.com/chatbuddy/chatbuddy-backend/models"
	"github.com/chatbuddy/chatbuddy-backend/socket"
	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GetAllMessages returns a chat's messages, newest first, with sender
// profiles hydrated. Only participants may read a chat.
func GetAllMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		chatID, err := bson.ObjectIDFromHex(c.Param("chatId"))
		if err != nil {
			_ = c.Error(utils.NewNotFoundError("Chat does not exist"))
			return
		}

		var chat models.Chat
		chatsCol := database.OpenCollection("chats")
		if err := chatsCol.FindOne(c, bson.M{"_id": chatID}).Decode(&chat); err != nil {
			_ = c.Error(utils.NewNotFoundError("Chat does not exist"))
			return
		}
		if !chat.HasParticipant(userID) {
			_ = c.Error(utils.NewApiError(http.StatusForbidden, "You are not a part of this chat"))
			return
		}

		messagesCol := database.OpenCollection("chatmessages")
		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
		cursor, err := messagesCol.Find(c, bson.M{"chat": chatID}, opts)
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer cursor.Close(c)

		var messages []models.Message
		if err := cursor.All(c, &messages); err != nil {
			_ = c.Error(err)
			return
		}

		senderIDSet := make(map[bson.ObjectID]bool)
		for _, m := range messages {
			senderIDSet[m.Sender] = true
		}
		senderIDs := make([]bson.ObjectID, 0, len(senderIDSet))
		for id := range senderIDSet {
			senderIDs = append(senderIDs, id)
		}
		senders, err := loadPublicUsers(c, senderIDs)
		if err != nil {
			_ = c.Error(err)
			return
		}

		responses := make([]dto.MessageResponse, 0, len(messages))
		for _, m := range messages {
			responses = append(responses, dto.MessageResponse{
				ID:        m.ID,
				Sender:    senders[m.Sender],
				Content:   m.Content,
				Chat:      m.Chat,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			})
		}

		c.JSON(http.StatusOK, utils.NewApiResponse(http.StatusOK, responses, "Messages fetched successfully"))
	}
}

// SendMessage persists a message, moves the chat's lastMessage pointer and
// fans the event out to the other participants' identity rooms. A
// non-participant is rejected before anything is written.
func SendMessage(hub *socket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		chatID, err := bson.ObjectIDFromHex(c.Param("chatId"))
		if err != nil {
			_ = c.Error(utils.NewNotFoundError("Chat does not exist"))
			return
		}

		var body dto.SendMessageDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(utils.NewValidationError("Message content is required"))
			return
		}

		var chat models.Chat
		chatsCol := database.OpenCollection("chats")
		if err := chatsCol.FindOne(c, bson.M{"_id": chatID}).Decode(&chat); err != nil {
			_ = c.Error(utils.NewNotFoundError("Chat does not exist"))
			return
		}
		if !chat.HasParticipant(userID) {
			_ = c.Error(utils.NewApiError(http.StatusForbidden, "You are not a part of this chat"))
			return
		}

		now := time.Now().UTC()
		message := models.Message{
			Sender:    userID,
			Content:   body.Content,
			Chat:      chatID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		messagesCol := database.OpenCollection("chatmessages")
		result, err := messagesCol.InsertOne(c, message)
		if err != nil {
			_ = c.Error(err)
			return
		}
		message.ID = result.InsertedID.(bson.ObjectID)

		if _, err := chatsCol.UpdateByID(c, chatID, bson.M{
			"$set": bson.M{"lastMessage": message.ID, "updatedAt": now},
		}); err != nil {
			_ = c.Error(err)
			return
		}

		senders, err := loadPublicUsers(c, []bson.ObjectID{userID})
		if err != nil {
			_ = c.Error(err)
			return
		}
		payload := dto.MessageResponse{
			ID:        message.ID,
			Sender:    senders[userID],
			Content:   message.Content,
			Chat:      message.Chat,
			CreatedAt: message.CreatedAt,
			UpdatedAt: message.UpdatedAt,
		}

		metrics.MessagesSentTotal.Inc()

		// The participant list is loaded at send time, not cached; the
		// sender is skipped by identity.
		socket.BroadcastToParticipants(hub, participantHexIDs(chat.Participants), userID.Hex(), socket.MessageReceivedEvent, payload)

		c.JSON(http.StatusCreated, utils.NewApiResponse(http.StatusCreated, payload, "Message saved successfully"))
	}
}
