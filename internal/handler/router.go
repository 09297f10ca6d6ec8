package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nyayasathi/kanun/internal/middleware"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Chat          *ChatHandler
	Conversations *ConversationHandler
	JWTSecret     []byte
	ChatRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/me", deps.Auth.Me)

	chatGroup := authGroup.Group("")
	chatGroup.Use(middleware.RateLimit(deps.ChatRateLimit))
	chatGroup.POST("/chat", deps.Chat.Chat)
	chatGroup.POST("/explain", deps.Chat.Explain)

	authGroup.POST("/search", deps.Chat.Search)

	authGroup.POST("/conversations", deps.Conversations.Create)
	authGroup.GET("/conversations", deps.Conversations.List)
	authGroup.GET("/conversations/:id/messages", deps.Conversations.Messages)
	authGroup.PUT("/conversations/:id", deps.Conversations.Rename)
	authGroup.DELETE("/conversations/:id", deps.Conversations.Delete)
}
