package api

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/chat-api/internal/interfaces/httpserver/handlers"
)

// Routes registers the /api surface.
type Routes struct {
	handlers     *handlers.Provider
	authenticate gin.HandlerFunc
}

// NewRoutes takes the middleware that guards every chat route.
func NewRoutes(provider *handlers.Provider, authenticate gin.HandlerFunc) *Routes {
	return &Routes{handlers: provider, authenticate: authenticate}
}

// Register attaches all routes under the /api prefix.
func (r *Routes) Register(router gin.IRouter) {
	group := router.Group("/api")
	group.GET("/upload", r.handlers.Upload.AuthParams)

	chats := group.Group("", r.authenticate)
	chats.POST("/chats", r.handlers.Chat.CreateChat)
	chats.GET("/userchats", r.handlers.Chat.ListChats)
	chats.GET("/chats/:id", r.handlers.Chat.GetChat)
	chats.PUT("/chats/:id", r.handlers.Chat.AppendExchange)
}
