package flight

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teesheet/internal/domain/fleet"
	"teesheet/internal/middleware"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/response"
	"teesheet/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// GetFlights handles GET /api/v1/courses/:courseID/flights?date=
// @Summary Projected tee sheet
// @Tags Flights
// @Produce json
// @Security BearerAuth
// @Param courseID path int true "Course ID"
// @Param date query string true "Play date"
// @Success 200 {object} response.Response{data=Board}
// @Router /courses/{courseID}/flights [get]
func (h *Handler) GetFlights(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	date, err := clock.ParseDate(c.Query("date"))
	if err != nil {
		response.FromError(c, apperr.ErrValidation.Wrap(err))
		return
	}
	board, err := h.service.GetFlights(c.Request.Context(), courseID, date)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, board)
}

// Book handles POST /api/v1/courses/:courseID/flights
// @Summary Book a tee time
// @Tags Flights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BookRequest true "Booking"
// @Success 201 {object} response.Response{data=Flight}
// @Failure 409 {object} response.Response
// @Router /courses/{courseID}/flights [post]
func (h *Handler) Book(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	var req BookRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.service.Book(c.Request.Context(), req.toInput(courseID, middleware.Editor(c)))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, f)
}

// Get handles GET /api/v1/flights/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	f, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// AddPlayer handles POST /api/v1/flights/:id/players
func (h *Handler) AddPlayer(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req AddPlayerRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.service.AddPlayer(c.Request.Context(), id, req.Version, req.PlayerRequest.toInput(), middleware.Editor(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// CheckIn handles POST /api/v1/flights/:id/players/:position/check-in
func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	position, err := strconv.Atoi(c.Param("position"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid position")
		return
	}
	var req CheckInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
			return
		}
	}
	f, err := h.service.CheckInPlayer(c.Request.Context(), id, position, req.PayLater, middleware.Editor(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// Transition handles POST /api/v1/flights/:id/transition
// @Summary Move a flight along its lifecycle
// @Tags Flights
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransitionRequest true "Target status"
// @Success 200 {object} response.Response{data=Flight}
// @Failure 409 {object} response.Response "Stale version or illegal transition"
// @Router /flights/{id}/transition [post]
func (h *Handler) Transition(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req TransitionRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.service.Transition(c.Request.Context(), id, req.Version, Status(req.Status), req.PayLaterPositions, middleware.Editor(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// AssignResources handles PUT /api/v1/flights/:id/resources
func (h *Handler) AssignResources(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req ResourcesRequest
	if !bind(c, &req) {
		return
	}
	f, err := h.service.AssignResources(c.Request.Context(), id, req.Version, req.CartID, req.CaddyID, middleware.Editor(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// AvailableResources handles GET /api/v1/courses/:courseID/resources/available?kind=&date=&time=
func (h *Handler) AvailableResources(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	kind := fleet.Kind(c.DefaultQuery("kind", string(fleet.KindCart)))
	if kind != fleet.KindCart && kind != fleet.KindCaddy {
		response.Error(c, http.StatusBadRequest, string(apperr.KindValidation), "kind must be cart or caddy")
		return
	}
	date, err := clock.ParseDate(c.Query("date"))
	if err != nil {
		response.FromError(c, apperr.ErrValidation.Wrap(err))
		return
	}
	t, err := clock.ParseTimeOfDay(c.Query("time"))
	if err != nil {
		response.FromError(c, apperr.ErrValidation.Wrap(err))
		return
	}
	items, err := h.service.AvailableResources(c.Request.Context(), courseID, kind, date, t)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"resources": items})
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return false
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(apperr.KindValidation), "Validation failed", errs)
		return false
	}
	return true
}

func courseParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("courseID"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid course ID")
		return 0, false
	}
	return id, true
}

func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid flight ID")
		return uuid.Nil, false
	}
	return id, true
}
