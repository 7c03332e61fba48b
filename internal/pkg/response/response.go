package response

import (
	"errors"
	"log"
	"net/http"

	"teesheet/internal/pkg/apperr"

	"github.com/gin-gonic/gin"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromError writes the envelope for a domain error, choosing the status by kind.
func FromError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		_ = c.Error(err)
		log.Printf("unhandled_error path=%s error=%q", c.Request.URL.Path, err.Error())
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	status := StatusFor(ae.Kind)
	if len(ae.IDs) > 0 {
		ErrorWithDetails(c, status, string(ae.Kind), ae.Error(), gin.H{"ids": ae.IDs})
		return
	}
	Error(c, status, string(ae.Kind), ae.Error())
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindState:
		return http.StatusConflict
	case apperr.KindPayment:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}
