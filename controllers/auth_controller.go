package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/chatbuddy/chatbuddy-backend/database"
	"github.com/chatbuddy/chatbuddy-backend/dto"
	"github.com/chatbuddy/chatbuddy-backend/middleware"
	"github.com/chatbuddy/chatbuddy-backend/models"
	"github.com/chatbuddy/chatbuddy-backend/services"
	"github.com/chatbuddy/chatbuddy-backend/socket"
	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// issueSession generates the access/refresh token pair, appends the refresh
// token's keyed hash to the user's ledger and sets the refresh cookie. The
// raw refresh token leaves the process only inside the cookie.
func issueSession(c *gin.Context, user *models.User) (string, error) {
	accessToken, err := utils.GenerateAccessToken(user.ID.Hex(), user.Email, user.Username)
	if err != nil {
		return "", err
	}
	refreshToken, err := utils.GenerateRefreshToken(user.ID.Hex())
	if err != nil {
		return "", err
	}

	usersCol := database.OpenCollection("users")
	_, err = usersCol.UpdateByID(c, user.ID, bson.M{
		"$push": bson.M{"tokens": models.SessionToken{Token: utils.HashRefreshToken(refreshToken)}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		return "", err
	}

	utils.SetRefreshCookie(c, refreshToken)
	return accessToken, nil
}

func Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(utils.NewApiError(http.StatusBadRequest, "email and password are required"))
			return
		}

		// One generic failure for unknown email and wrong password alike.
		var user models.User
		usersCol := database.OpenCollection("users")
		if err := usersCol.FindOne(c, bson.M{"email": utils.NormalizeEmail(body.Email)}).Decode(&user); err != nil {
			_ = c.Error(utils.NewApiError(http.StatusBadRequest, "invalid credentials"))
			return
		}
		if err := utils.CheckPassword(user.Password, body.Password); err != nil {
			_ = c.Error(utils.NewApiError(http.StatusBadRequest, "invalid credentials"))
			return
		}

		accessToken, err := issueSession(c, &user)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusOK, utils.NewApiResponse(http.StatusOK, gin.H{
			"user":        user,
			"accessToken": accessToken,
		}, "User logged in successfully"))
	}
}

func Register() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.RegisterDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(utils.NewValidationError(err.Error()))
			return
		}

		hashed, err := utils.HashPassword(body.Password)
		if err != nil {
			_ = c.Error(err)
			return
		}

		now := time.Now().UTC()
		user := models.User{
			Avatar:   models.Avatar{URL: models.DefaultAvatarURL},
			Username: utils.NormalizeUsername(body.Username),
			Email:    utils.NormalizeEmail(body.Email),
			FullName: models.FullName{
				FirstName: body.FullName.FirstName,
				LastName:  body.FullName.LastName,
			},
			Password:  hashed,
			CreatedAt: now,
			UpdatedAt: now,
		}

		usersCol := database.OpenCollection("users")
		result, err := usersCol.InsertOne(c, user)
		if err != nil {
			// Unique indexes on username and email surface here; the error
			// middleware maps duplicates to 409.
			_ = c.Error(err)
			return
		}
		user.ID = result.InsertedID.(bson.ObjectID)

		accessToken, err := issueSession(c, &user)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, utils.NewApiResponse(http.StatusCreated, gin.H{
			"user":        user,
			"accessToken": accessToken,
		}, "User registered successfully"))
	}
}

// Logout revokes the presenting session's refresh token only; the user's
// other sessions stay valid.
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := bson.ObjectIDFromHex(middleware.UserID(c))
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		if refreshToken, cerr := c.Cookie(utils.RefreshCookieName); cerr == nil && refreshToken != "" {
			usersCol := database.OpenCollection("users")
			_, err := usersCol.UpdateByID(c, userID, bson.M{
				"$pull": bson.M{"tokens": bson.M{"token": utils.HashRefreshToken(refreshToken)}},
			})
			if err != nil {
				_ = c.Error(err)
				return
			}
		}

		utils.ClearRefreshCookie(c)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// LogoutAllDevices clears the whole refresh-token ledger and tells every
// live session of the user to drop its local state. All of the acting
// user's connections receive the event, the initiating request is answered
// by the response body.
func LogoutAllDevices(hub *socket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		objID, err := bson.ObjectIDFromHex(userID)
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_access_token", nil))
			return
		}

		usersCol := database.OpenCollection("users")
		if _, err := usersCol.UpdateByID(c, objID, bson.M{
			"$set": bson.M{"tokens": []models.SessionToken{}, "updatedAt": time.Now().UTC()},
		}); err != nil {
			_ = c.Error(err)
			return
		}

		hub.EmitToRoom(userID, socket.ForcedLogoutEvent, userID)

		utils.ClearRefreshCookie(c)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// RefreshAccessToken mints a new access token off the refresh cookie. A
// syntactically valid but revoked token fails exactly like a missing one.
func RefreshAccessToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		refreshToken, err := c.Cookie(utils.RefreshCookieName)
		if err != nil || refreshToken == "" {
			_ = c.Error(utils.NewAuthError("You are unauthenticated", "no_rft", map[string]string{
				"realm":             "reauth",
				"error_description": "Refresh Token is missing!",
			}))
			return
		}

		claims, err := utils.ValidateRefreshToken(refreshToken)
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated", "invalid_rft", map[string]string{
				"realm":             "reauth",
				"error_description": "token error",
			}))
			return
		}

		objID, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_rft", map[string]string{"realm": "reauth"}))
			return
		}

		// The signature alone is not enough; the keyed hash must still be
		// present in the user's ledger.
		var user models.User
		usersCol := database.OpenCollection("users")
		err = usersCol.FindOne(c, bson.M{
			"_id":          objID,
			"tokens.token": utils.HashRefreshToken(refreshToken),
		}).Decode(&user)
		if err != nil {
			_ = c.Error(utils.NewAuthError("You are unauthenticated!", "invalid_rft", map[string]string{"realm": "reauth"}))
			return
		}

		accessToken, err := utils.GenerateAccessToken(user.ID.Hex(), user.Email, user.Username)
		if err != nil {
			_ = c.Error(err)
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.JSON(http.StatusCreated, gin.H{
			"success":     true,
			"accessToken": accessToken,
		})
	}
}

// ForgotPassword answers with the identical body whether or not the email
// exists, so the endpoint cannot be used to enumerate accounts.
func ForgotPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.ForgotPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(utils.NewValidationError(err.Error()))
			return
		}

		email := utils.NormalizeEmail(body.Email)
		feedback := "If " + email + " is found with us, we've sent an email to it with instructions to reset your password."

		var user models.User
		usersCol := database.OpenCollection("users")
		if err := usersCol.FindOne(c, bson.M{"email": email}).Decode(&user); err != nil {
			c.JSON(http.StatusOK, gin.H{"message": "Reset link sent", "feedback": feedback, "success": true})
			return
		}

		composite, hash, err := utils.GenerateResetToken()
		if err != nil {
			_ = c.Error(err)
			return
		}

		expiry := time.Now().UTC().Add(utils.ResetTTL())
		if _, err := usersCol.UpdateByID(c, user.ID, bson.M{
			"$set": bson.M{
				"resetpasswordtoken":       hash,
				"resetpasswordtokenexpiry": expiry,
			},
		}); err != nil {
			_ = c.Error(err)
			return
		}

		resetBase := c.GetHeader("X-Reset-Base")
		if resetBase == "" {
			resetBase = c.GetHeader("Origin") + "/resetpass"
		}
		resetURL := resetBase + "/" + composite

		fullName := user.FullName.FirstName + " " + user.FullName.LastName
		expiryMinutes := int(utils.ResetTTL().Minutes())
		if err := services.SendResetPasswordEmail(c, user.Email, fullName, resetURL, expiryMinutes); err != nil {
			// A broken send must not leave a live, unusable reset window.
			if _, uerr := usersCol.UpdateByID(c, user.ID, bson.M{
				"$unset": bson.M{"resetpasswordtoken": "", "resetpasswordtokenexpiry": ""},
			}); uerr != nil {
				log.Error().Err(uerr).Msg("reset token rollback")
			}
			log.Error().Err(err).Msg("reset password email")
			_ = c.Error(utils.NewInternalError("Internal issues standing in the way"))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Reset link sent", "feedback": feedback, "success": true})
	}
}

// ResetPassword consumes a composite reset token. Unknown, expired and
// malformed tokens all produce the same 400.
func ResetPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		hash, err := utils.ResetTokenHash(c.Param("resetToken"))
		if err != nil {
			_ = c.Error(utils.NewApiError(http.StatusBadRequest, "The reset link is invalid"))
			return
		}

		var body dto.ResetPasswordDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(utils.NewValidationError(err.Error()))
			return
		}

		var user models.User
		usersCol := database.OpenCollection("users")
		err = usersCol.FindOne(c, bson.M{
			"resetpasswordtoken":       hash,
			"resetpasswordtokenexpiry": bson.M{"$gt": time.Now().UTC()},
		}).Decode(&user)
		if err != nil {
			_ = c.Error(utils.NewApiError(http.StatusBadRequest, "The reset link is invalid"))
			return
		}

		hashed, err := utils.HashPassword(body.Password)
		if err != nil {
			_ = c.Error(err)
			return
		}

		// Clearing the reset fields in the same update makes the token
		// single-use.
		if _, err := usersCol.UpdateByID(c, user.ID, bson.M{
			"$set":   bson.M{"password": hashed, "updatedAt": time.Now().UTC()},
			"$unset": bson.M{"resetpasswordtoken": "", "resetpasswordtokenexpiry": ""},
		}); err != nil {
			_ = c.Error(err)
			return
		}

		baseURL := c.GetHeader("X-Reset-Base")
		if baseURL == "" {
			baseURL = c.GetHeader("Origin")
		}
		fullName := user.FullName.FirstName + " " + user.FullName.LastName
		go func(email, fullName, baseURL string) {
			if err := services.SendPasswordChangedEmail(context.Background(), email, fullName, baseURL); err != nil {
				log.Warn().Err(err).Msg("password changed email")
			}
		}(user.Email, fullName, baseURL)

		c.JSON(http.StatusOK, gin.H{"message": "Password reset successful", "success": true})
	}
}
