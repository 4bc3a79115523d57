package middleware

import (
	"errors"
	"net/http"
	"os"

	"github.com/chatbuddy/chatbuddy-backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrorHandler is the single translator from raised errors to HTTP
// responses. Handlers attach errors with c.Error; storage-layer failures
// are normalized into the same taxonomy here.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *utils.ApiError
		if !errors.As(err, &apiErr) {
			switch {
			case utils.IsDuplicateKey(err):
				apiErr = utils.NewConflictError("username or email already exists")
			case errors.Is(err, mongo.ErrNoDocuments):
				apiErr = utils.NewNotFoundError("resource not found")
			default:
				log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
				apiErr = utils.NewInternalError("something went wrong")
			}
		}

		body := gin.H{
			"statusCode": apiErr.StatusCode,
			"message":    apiErr.Message,
			"success":    false,
		}
		if apiErr.Reason != "" {
			body["reason"] = apiErr.Reason
		}
		if len(apiErr.Challenge) > 0 {
			body["challenge"] = apiErr.Challenge
		}
		if len(apiErr.Errors) > 0 {
			body["errors"] = apiErr.Errors
		}
		if os.Getenv("APP_ENV") == "development" && apiErr.StatusCode >= http.StatusInternalServerError {
			body["stack"] = apiErr.Stack
		}

		c.JSON(apiErr.StatusCode, body)
	}
}
