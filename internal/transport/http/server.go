package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/team3/messenger-server/internal/config"
	"github.com/team3/messenger-server/internal/core"
	"github.com/team3/messenger-server/internal/service/chats"
	"github.com/team3/messenger-server/internal/service/users"
)

// NewServer builds the HTTP server with REST, metrics and socket routes.
func NewServer(hub *core.Hub, userSvc *users.Service, chatSvc *chats.Service, cfg *config.Config, logger *zerolog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger), IdentityMiddleware())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	userHandlers := NewUserHandlers(userSvc, logger)
	chatHandlers := NewChatHandlers(chatSvc, logger)
	messageHandlers := NewMessageHandlers(chatSvc, logger)
	wsHandler := NewWSHandler(hub, chatSvc, logger)

	api := router.Group("/api")
	{
		api.POST("/users/:nickname", userHandlers.EnsureUser)
		api.GET("/users/:nickname", userHandlers.GetUser)
		api.PATCH("/users/:nickname/avatar", userHandlers.UpdateAvatar)

		api.POST("/chats", chatHandlers.CreateChat)
		api.GET("/chats", chatHandlers.ListChats)
		api.PATCH("/chats/:id/title", chatHandlers.UpdateTitle)
		api.PATCH("/chats/:id/avatar", chatHandlers.UpdateAvatar)
		api.POST("/chats/:id/members/:nickname", chatHandlers.AddMember)
		api.DELETE("/chats/:id/members/:nickname", chatHandlers.RemoveMember)

		api.POST("/chats/:id/messages", messageHandlers.PostMessage)
		api.GET("/chats/:id/messages", messageHandlers.ListMessages)
	}

	router.GET("/ws", wsHandler.Handle)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
