package schedule

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"teesheet/internal/middleware"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/response"
	"teesheet/internal/pkg/validator"
)

type Handler struct {
	service *Service
	now     func() time.Time
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

// GetSlots handles GET /api/v1/courses/:courseID/slots?date=YYYY-MM-DD
// @Summary Generated tee-time grid
// @Tags Schedule
// @Produce json
// @Security BearerAuth
// @Param courseID path int true "Course ID"
// @Param date query string true "Play date"
// @Success 200 {object} response.Response{data=Sheet}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /courses/{courseID}/slots [get]
func (h *Handler) GetSlots(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	date, err := clock.ParseDate(c.Query("date"))
	if err != nil {
		response.FromError(c, apperr.ErrValidation.Wrap(err))
		return
	}
	sheet, err := h.service.GetSlots(c.Request.Context(), courseID, date)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, sheet)
}

// GetConfig handles GET /api/v1/courses/:courseID/schedule-config?date=
func (h *Handler) GetConfig(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	loc, err := h.service.Location(c.Request.Context(), courseID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	date := clock.DateOf(h.now().In(loc))
	if s := c.Query("date"); s != "" {
		d, err := clock.ParseDate(s)
		if err != nil {
			response.FromError(c, apperr.ErrValidation.Wrap(err))
			return
		}
		date = d
	}
	cfg, err := h.service.GetConfig(c.Request.Context(), courseID, date)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cfg)
}

// PutConfig handles PUT /api/v1/courses/:courseID/schedule-config
func (h *Handler) PutConfig(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(apperr.KindValidation), "Invalid schedule config", errs)
		return
	}
	opens, _ := clock.ParseTimeOfDay(req.OpensAt)
	closes, _ := clock.ParseTimeOfDay(req.ClosesAt)

	cfg, err := h.service.SaveConfig(c.Request.Context(), &Config{
		CourseID:        courseID,
		EffectiveFrom:   req.EffectiveFrom,
		Timezone:        req.Timezone,
		OpensAt:         opens,
		ClosesAt:        closes,
		IntervalMinutes: req.IntervalMinutes,
		Crossover:       req.Crossover,
		Shotgun:         req.Shotgun,
		CreatedBy:       middleware.Editor(c),
	})
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cfg)
}

func courseParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("courseID"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid course ID")
		return 0, false
	}
	return id, true
}
