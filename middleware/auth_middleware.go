package middleware

import (
	"errors"
	"strings"

	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the Bearer access token and exposes its claims to
// handlers. It never touches the database; handlers load the user when they
// need more than identity.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abortWithAuthError(c, "You are unauthenticated!", "invalid_access_token", "unknown authentication scheme")
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := utils.ValidateAccessToken(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithAuthError(c, "Token lifetime exceeded!", "expired_access_token", "access token is expired")
				return
			}
			abortWithAuthError(c, "You are unauthenticated!", "invalid_access_token", "access token is invalid")
			return
		}

		c.Set("userID", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("username", claims.Username)
		c.Next()
	}
}

func abortWithAuthError(c *gin.Context, message, reason, description string) {
	_ = c.Error(utils.NewAuthError(message, reason, map[string]string{
		"error":             reason,
		"error_description": description,
	}))
	c.Abort()
}

// UserID returns the authenticated user's id set by AuthMiddleware.
func UserID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
