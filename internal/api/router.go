package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes the Gin router and sets up the routes
func SetupRouter(h *Handler, verifier TokenVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(), ErrorMiddleware())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/leaderboard", h.GetLeaderboard)
	api.GET("/courses", h.ListCourses)
	api.GET("/courses/:id/modules", h.ListModules)
	api.GET("/chat/messages", h.ListMessages)

	authed := api.Group("", RequireAuth(verifier))
	authed.POST("/modules/:id/complete", h.CompleteModule)
	authed.GET("/me/progress", h.GetMyProgress)
	authed.POST("/chat/messages", h.PostMessage)

	admin := authed.Group("/admin", RequireAdmin())
	admin.POST("/courses", h.CreateCourse)
	admin.DELETE("/courses/:id", h.DeleteCourse)
	admin.POST("/courses/:id/modules", h.CreateModule)
	admin.DELETE("/modules/:id", h.DeleteModule)

	// WebSocket route
	r.GET("/ws", h.WebSocket)

	return r
}
