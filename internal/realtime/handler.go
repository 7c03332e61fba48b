package realtime

import (
	"log"
	"net/http"
	"strconv"

	"teesheet/internal/middleware"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Serve upgrades to a websocket. Runs behind middleware.JWTAuth; the token
// travels as ?token= because browsers cannot set headers on upgrade.
//
// GET /ws/teesheet?token=&course=&date=
func (h *Handler) Serve(c *gin.Context) {
	var initial []string
	if courseStr := c.Query("course"); courseStr != "" {
		courseID, err := strconv.ParseInt(courseStr, 10, 64)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid course id")
			return
		}
		date, err := clock.ParseDate(c.Query("date"))
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		initial = append(initial, Channel(courseID, date.String()))
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("realtime_upgrade_failed error=%q", err.Error())
		return
	}

	staffID := c.GetInt64(middleware.KeyStaffID)
	log.Printf("realtime_connected staff_id=%d channels=%v", staffID, initial)
	h.hub.ServeWS(conn, staffID, initial)
	log.Printf("realtime_disconnected staff_id=%d", staffID)
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/ws/teesheet", h.Serve)
}
