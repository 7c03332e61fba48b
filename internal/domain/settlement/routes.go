package settlement

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.POST("/settlements", handler.Settle)
	r.GET("/settlements/:id", handler.Get)
	r.GET("/courses/:courseID/settlements", handler.List)
	r.GET("/courses/:courseID/settlements/summary", handler.Summary)
}
