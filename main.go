package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/chatbuddy/chatbuddy-backend/controllers"
	"github.com/chatbuddy/chatbuddy-backend/database"
	"github.com/chatbuddy/chatbuddy-backend/logger"
	"github.com/chatbuddy/chatbuddy-backend/metrics"
	"github.com/chatbuddy/chatbuddy-backend/middleware"
	"github.com/chatbuddy/chatbuddy-backend/socket"
	"github.com/chatbuddy/chatbuddy-backend/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using system environment variables")
	}
	logger.Init(os.Getenv("APP_ENV"))

	ctx := context.Background()
	if err := database.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure indexes")
	}

	hub := socket.NewHub()
	store := database.Store{}

	if os.Getenv("APP_ENV") != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(middleware.ErrorHandler())

	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Reset-Base"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	authLimiter := middleware.NewRateLimiter(rate.Every(time.Second), 10, 10*time.Minute)
	users := api.Group("/users")
	users.Use(authLimiter.Middleware())
	{
		users.POST("/register", controllers.Register())
		users.POST("/login", controllers.Login())
		users.POST("/reauth", controllers.RefreshAccessToken())
		users.POST("/forgotpass", controllers.ForgotPassword())
		users.POST("/resetpass/:resetToken", controllers.ResetPassword())

		users.POST("/logout", middleware.AuthMiddleware(), controllers.Logout())
		users.POST("/master-logout", middleware.AuthMiddleware(), controllers.LogoutAllDevices(hub))
		users.GET("/me", middleware.AuthMiddleware(), controllers.GetCurrentUser())
		users.PATCH("/avatar", middleware.AuthMiddleware(), controllers.UpdateAvatar(utils.NewAvatarImageValidator()))
	}

	chats := api.Group("/chat-app/chats")
	chats.Use(middleware.AuthMiddleware())
	{
		chats.GET("", controllers.GetAllChats())
		chats.GET("/users", controllers.SearchAvailableUsers())
		chats.POST("/c/:receiverId", controllers.CreateOrGetAOneOnOneChat(hub))
	}

	messages := api.Group("/chat-app/messages")
	messages.Use(middleware.AuthMiddleware())
	{
		messages.GET("/:chatId", controllers.GetAllMessages())
		messages.POST("/:chatId", controllers.SendMessage(hub))
	}

	r.GET("/ws", socket.Serve(hub, store, store))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info().Str("port", port).Msg("server starting")
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server run")
	}
}
