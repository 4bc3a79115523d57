package controllers

import (
	"net/http"
	"time"

	"github.com/chatbuddy/chatbuddy-backend/database"
	"github.com/chatbuddy/chatbuddy-backend/middleware"
	"github.com/chatbuddy/chatbuddy-backend/models"
	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// GetCurrentUser returns the authenticated user's own profile.
func GetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		var user models.User
		usersCol := database.OpenCollection("users")
		if err := usersCol.FindOne(c, bson.M{"_id": userID}).Decode(&user); err != nil {
			_ = c.Error(utils.NewNotFoundError("User does not exist"))
			return
		}

		c.JSON(http.StatusOK, utils.NewApiResponse(http.StatusOK, gin.H{"user": user}, "User fetched successfully"))
	}
}

// UpdateAvatar uploads a new avatar image to the bucket and points the
// user's profile at its public URL.
func UpdateAvatar(v *utils.AvatarImageValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		fh, err := c.FormFile("avatar")
		if err != nil {
			_ = c.Error(utils.NewValidationError("avatar file is required"))
			return
		}
		if err := v.ValidateFile(fh); err != nil {
			_ = c.Error(utils.NewValidationError(err.Error()))
			return
		}

		gcs, bucket, err := utils.NewGCSClient(c)
		if err != nil {
			_ = c.Error(err)
			return
		}
		defer gcs.Close()

		url, err := utils.UploadAvatarToGCS(c, gcs, bucket, userID.Hex(), fh)
		if err != nil {
			_ = c.Error(err)
			return
		}

		var user models.User
		usersCol := database.OpenCollection("users")
		if err := usersCol.FindOneAndUpdate(c, bson.M{"_id": userID}, bson.M{
			"$set": bson.M{"avatar.url": url, "updatedAt": time.Now().UTC()},
		}).Decode(&user); err != nil {
			_ = c.Error(err)
			return
		}
		user.Avatar.URL = url

		c.JSON(http.StatusOK, utils.NewApiResponse(http.StatusOK, gin.H{"user": user}, "Avatar updated successfully"))
	}
}
