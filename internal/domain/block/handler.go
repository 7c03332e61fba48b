package block

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"teesheet/internal/middleware"
	"teesheet/internal/pkg/apperr"
	"teesheet/internal/pkg/clock"
	"teesheet/internal/pkg/response"
	"teesheet/internal/pkg/validator"
)

// Locations resolves a course's timezone.
type Locations interface {
	Location(ctx context.Context, courseID int64) (*time.Location, error)
}

type Handler struct {
	manager *Manager
	locs    Locations
}

func NewHandler(manager *Manager, locs Locations) *Handler {
	return &Handler{manager: manager, locs: locs}
}

// List handles GET /api/v1/courses/:courseID/blocks?from=&to=
func (h *Handler) List(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	from, err := clock.ParseDate(c.Query("from"))
	if err != nil {
		response.FromError(c, apperr.ErrValidation.Wrap(err))
		return
	}
	to := from
	if s := c.Query("to"); s != "" {
		if to, err = clock.ParseDate(s); err != nil {
			response.FromError(c, apperr.ErrValidation.Wrap(err))
			return
		}
	}

	loc, err := h.locs.Location(c.Request.Context(), courseID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	blocks, err := h.manager.ListActive(c.Request.Context(), courseID, from, to, loc)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"blocks": blocks})
}

// Create handles POST /api/v1/courses/:courseID/blocks
// @Summary Block a time range
// @Tags Blocks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BlockRequest true "Block"
// @Success 201 {object} response.Response{data=Block}
// @Failure 400 {object} response.Response
// @Router /courses/{courseID}/blocks [post]
func (h *Handler) Create(c *gin.Context) {
	courseID, ok := courseParam(c)
	if !ok {
		return
	}
	in, loc, ok := h.bind(c, courseID)
	if !ok {
		return
	}
	b, err := h.manager.Create(c.Request.Context(), in, loc)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

// Update handles PUT /api/v1/blocks/:id
func (h *Handler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	cur, err := h.manager.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	in, loc, ok := h.bind(c, cur.CourseID)
	if !ok {
		return
	}
	b, err := h.manager.Update(c.Request.Context(), id, in, loc)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// Delete handles DELETE /api/v1/blocks/:id
func (h *Handler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.manager.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) bind(c *gin.Context, courseID int64) (Input, *time.Location, bool) {
	var req BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return Input{}, nil, false
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, string(apperr.KindValidation), "Invalid block", errs)
		return Input{}, nil, false
	}
	in, err := req.toInput(courseID, middleware.Editor(c))
	if err != nil {
		response.FromError(c, err)
		return Input{}, nil, false
	}
	loc, err := h.locs.Location(c.Request.Context(), courseID)
	if err != nil {
		response.FromError(c, err)
		return Input{}, nil, false
	}
	return in, loc, true
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
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid block ID")
		return uuid.Nil, false
	}
	return id, true
}
