package api

import (
	"chathub/internal/entity"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 挂载 /health 和 /api 下的全部路由
func (h *HTTPHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", health)

	apiGroup := r.Group("/api")

	authGroup := apiGroup.Group("/auth")
	authGroup.POST("/register", h.Register)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/me", h.AuthMiddleware(), h.Me)

	protected := apiGroup.Group("")
	protected.Use(h.AuthMiddleware())
	protected.GET("/me", h.Me)
	protected.PUT("/me", h.UpdateProfile)
	protected.DELETE("/me", h.DeleteProfile)

	conversations := protected.Group("/conversations")
	conversations.POST("", h.CreateConversation)
	conversations.GET("", h.ListConversations)
	conversations.GET("/:id", h.GetConversation)
	conversations.PUT("/:id", h.UpdateConversation)
	conversations.DELETE("/:id", h.DeleteConversation)
	conversations.GET("/:id/messages", h.ListConversationMessages)
	conversations.POST("/:id/title", h.GenerateConversationTitle)
	conversations.POST("/:id/export", h.ExportConversation)

	protected.POST("/chat/send_stream", h.SendStream)

	userAdmin := protected.Group("/users")
	userAdmin.Use(h.RequireRole(entity.UserRoleAdmin))
	userAdmin.GET("", h.ListUsers)
	userAdmin.POST("", h.CreateUser)
	userAdmin.PUT("/:id/role", h.UpdateUserRole)
	userAdmin.PUT("/:id/login_permission", h.UpdateUserLoginPermission)
	userAdmin.PUT("/:id/can_chat", h.UpdateUserChatPermission)
	userAdmin.DELETE("/:id", h.DeleteUser)
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
