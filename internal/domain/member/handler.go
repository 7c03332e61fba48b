package member

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"teesheet/internal/pkg/response"
)

type Handler struct {
	dir *Directory
}

func NewHandler(dir *Directory) *Handler {
	return &Handler{dir: dir}
}

// Search handles GET /api/v1/members?q=&limit=
func (h *Handler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	people, err := h.dir.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"people": people})
}

// Get handles GET /api/v1/members/:ref
func (h *Handler) Get(c *gin.Context) {
	p, err := h.dir.Get(c.Request.Context(), c.Param("ref"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/members", handler.Search)
	r.GET("/members/:ref", handler.Get)
}
