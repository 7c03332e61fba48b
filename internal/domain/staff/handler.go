package staff

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"teesheet/internal/pkg/response"
	"teesheet/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Login authenticates a staff member at a terminal.
// @Summary Staff terminal login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Staff code, PIN and terminal id"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", errs)
		return
	}

	res, err := h.service.Login(c.Request.Context(), req.Code, req.Pin, req.TerminalID)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Staff code or PIN is incorrect")
		case errors.Is(err, ErrAccountLocked):
			response.Error(c, http.StatusForbidden, "ACCOUNT_LOCKED", "Account is temporarily locked")
		case errors.Is(err, ErrAccountDisabled):
			response.Error(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled")
		default:
			response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"staff": gin.H{
			"id":   res.Staff.ID,
			"code": res.Staff.Code,
			"name": res.Staff.Name,
			"role": res.Staff.Role,
		},
		"tokens": gin.H{
			"access_token": res.AccessToken,
		},
	})
}

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	r.POST("/auth/login", handler.Login)
}
