package cart

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teesheet/internal/middleware"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/response"
	"teesheet/internal/pkg/validator"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// GetDraft handles GET /api/v1/flights/:id/draft
func (h *Handler) GetDraft(c *gin.Context) {
	id, ok := idParam(c, "Invalid flight ID")
	if !ok {
		return
	}
	d, err := h.engine.GetDraft(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// Mutate handles POST /api/v1/flights/:id/cart/mutations
// @Summary Apply a cart edit
// @Description Adds, removes or transfers a line item. The request must carry the current cart version.
// @Tags Cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body MutationRequest true "Cart operation"
// @Success 200 {object} response.Response{data=Draft}
// @Failure 409 {object} response.Response "Stale version, settlement in progress or paid item"
// @Router /flights/{id}/cart/mutations [post]
func (h *Handler) Mutate(c *gin.Context) {
	id, ok := idParam(c, "Invalid flight ID")
	if !ok {
		return
	}
	var req MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(apperr.KindValidation), "Invalid cart operation", errs)
		return
	}
	op, err := req.toOperation()
	if err != nil {
		response.FromError(c, err)
		return
	}
	d, err := h.engine.Mutate(c.Request.Context(), id, req.Version, middleware.Editor(c), op)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, d)
}

// Discard handles DELETE /api/v1/flights/:id/draft?version=
func (h *Handler) Discard(c *gin.Context) {
	id, ok := idParam(c, "Invalid flight ID")
	if !ok {
		return
	}
	version, err := strconv.ParseInt(c.Query("version"), 10, 64)
	if err != nil || version <= 0 {
		response.Error(c, http.StatusBadRequest, string(apperr.KindValidation), "version is required")
		return
	}
	if err := h.engine.Discard(c.Request.Context(), id, version, middleware.Editor(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"flight_id": id, "discarded": true})
}

// PlayerCart handles GET /api/v1/player-slots/:id/cart
func (h *Handler) PlayerCart(c *gin.Context) {
	id, ok := idParam(c, "Invalid player slot ID")
	if !ok {
		return
	}
	items, err := h.engine.Cart(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"player_slot_id": id,
		"items":          items,
		"balance":        Balance(items, id),
	})
}

// FlightBalance handles GET /api/v1/flights/:id/balance
func (h *Handler) FlightBalance(c *gin.Context) {
	id, ok := idParam(c, "Invalid flight ID")
	if !ok {
		return
	}
	players, err := h.engine.PlayerBalances(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	var total int64
	for _, b := range players {
		total += b
	}
	response.Success(c, http.StatusOK, gin.H{
		"flight_id": id,
		"balance":   total,
		"players":   players,
	})
}

func idParam(c *gin.Context, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", msg)
		return uuid.Nil, false
	}
	return id, true
}
