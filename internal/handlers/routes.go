package handlers

import "github.com/gin-gonic/gin"

// Register mounts the health check and the todo resource on api.
func Register(api *gin.RouterGroup, h *TodoHandler) {
	api.GET("/health", Health)

	api.GET("/todos", h.List)
	api.POST("/todos", h.Create)
	api.GET("/todos/:id", h.GetByID)
	api.PUT("/todos/:id", h.Update)
	api.DELETE("/todos/:id", h.Delete)
}
