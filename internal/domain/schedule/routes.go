package schedule

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, admin gin.HandlerFunc) {
	r.GET("/courses/:courseID/slots", handler.GetSlots)
	r.GET("/courses/:courseID/schedule-config", handler.GetConfig)
	r.PUT("/courses/:courseID/schedule-config", admin, handler.PutConfig)
}
