package fleet

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"teesheet/internal/pkg/response"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// List handles GET /api/v1/courses/:courseID/fleet
func (h *Handler) List(c *gin.Context) {
	courseID, err := strconv.ParseInt(c.Param("courseID"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid course id")
		return
	}
	items, err := h.registry.List(c.Request.Context(), courseID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resources": items})
}

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/courses/:courseID/fleet", handler.List)
}
