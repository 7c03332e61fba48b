package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"teesheet/internal/pkg/response"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// ListProducts godoc
// @Summary List catalog products
// @Tags Catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /catalog/products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.catalog.List(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"products": products})
}

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.GET("/catalog/products", handler.ListProducts)
}
