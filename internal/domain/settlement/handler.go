package settlement

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teesheet/internal/middleware"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/response"
	"teesheet/internal/pkg/validator"
)

type Handler struct {
	coordinator *Coordinator
	reports     *Reports
}

func NewHandler(coordinator *Coordinator, reports *Reports) *Handler {
	return &Handler{coordinator: coordinator, reports: reports}
}

// Settle handles POST /api/v1/settlements
// @Summary Settle a batch of player slots
// @Description Charges the outstanding balance of the selected players and checks them in. Safe to retry with the same idempotency key.
// @Tags Settlement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SettleBody true "Batch selection"
// @Success 201 {object} response.Response{data=Batch}
// @Failure 400 {object} response.Response "Invalid selection or amount mismatch"
// @Failure 402 {object} response.Response "Declined or gateway timeout"
// @Failure 409 {object} response.Response "Cart changed or settlement in progress"
// @Router /settlements [post]
func (h *Handler) Settle(c *gin.Context) {
	var body SettleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	}
	if errs := validator.Validate(&body); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(apperr.KindValidation), "Invalid settlement request", errs)
		return
	}
	batch, err := h.coordinator.Settle(c.Request.Context(), body.toRequest(middleware.Editor(c)))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, batch)
}

// Get handles GET /api/v1/settlements/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid settlement ID")
		return
	}
	b, err := h.coordinator.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// List handles GET /api/v1/courses/:courseID/settlements?date=
func (h *Handler) List(c *gin.Context) {
	courseID, date, ok := courseDate(c)
	if !ok {
		return
	}
	batches, err := h.coordinator.ListByDate(c.Request.Context(), courseID, date)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course_id": courseID, "date": date, "batches": batches})
}

// Summary handles GET /api/v1/courses/:courseID/settlements/summary?date=
func (h *Handler) Summary(c *gin.Context) {
	courseID, date, ok := courseDate(c)
	if !ok {
		return
	}
	rows, err := h.reports.DailySummary(c.Request.Context(), courseID, date)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"course_id": courseID, "date": date, "summary": rows})
}

func courseDate(c *gin.Context) (int64, string, bool) {
	courseID, err := strconv.ParseInt(c.Param("courseID"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid course id")
		return 0, "", false
	}
	d, err := clock.ParseDate(c.Query("date"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, string(apperr.KindValidation), "date must be YYYY-MM-DD")
		return 0, "", false
	}
	return courseID, d.String(), true
}
