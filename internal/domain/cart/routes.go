package cart

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/flights/:id/draft", handler.GetDraft)
	r.DELETE("/flights/:id/draft", handler.Discard)
	r.POST("/flights/:id/cart/mutations", handler.Mutate)
	r.GET("/flights/:id/balance", handler.FlightBalance)
	r.GET("/player-slots/:id/cart", handler.PlayerCart)
}
