package block

import "github.com/gin-gonic/gin"

// RegisterRoutes registers block routes. Writes are limited to admins and starters.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler, write gin.HandlerFunc) {
	r.GET("/courses/:courseID/blocks", handler.List)
	r.POST("/courses/:courseID/blocks", write, handler.Create)
	r.PUT("/blocks/:id", write, handler.Update)
	r.DELETE("/blocks/:id", write, handler.Delete)
}
