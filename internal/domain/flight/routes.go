package flight

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/courses/:courseID/flights", handler.GetFlights)
	r.POST("/courses/:courseID/flights", handler.Book)
	r.GET("/courses/:courseID/resources/available", handler.AvailableResources)

	flights := r.Group("/flights/:id")
	{
		flights.GET("", handler.Get)
		flights.POST("/players", handler.AddPlayer)
		flights.POST("/players/:position/check-in", handler.CheckIn)
		flights.POST("/transition", handler.Transition)
		flights.PUT("/resources", handler.AssignResources)
	}
}
