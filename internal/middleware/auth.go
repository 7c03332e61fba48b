package middleware

import (
	"net/http"
	"strings"

	"teesheet/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth.
const (
	KeyStaffID    = "staff_id"
	KeyRole       = "role"
	KeyTerminalID = "terminal_id"
)

// JWTAuth requires a staff bearer token. Websocket upgrades may pass it as ?token=.
func JWTAuth(j *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, code, msg := bearerToken(c)
		if tokenStr == "" {
			abortUnauthorized(c, code, msg)
			return
		}

		claims, err := j.ValidateToken(tokenStr)
		if err != nil {
			abortUnauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(KeyStaffID, claims.StaffID)
		c.Set(KeyRole, claims.Role)
		c.Set(KeyTerminalID, claims.TerminalID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (token, code, message string) {
	h := c.GetHeader("Authorization")
	if h == "" {
		if q := strings.TrimSpace(c.Query("token")); q != "" {
			return q, "", ""
		}
		return "", "AUTH_HEADER_MISSING", "Authorization header is required"
	}

	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'"
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", "INVALID_AUTH_FORMAT", "Empty token"
	}
	return token, "", ""
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}

// Editor names the signed-in staff member for audit fields such as lastEditedBy.
func Editor(c *gin.Context) string {
	id := c.GetInt64(KeyStaffID)
	if id == 0 {
		return ""
	}
	if term := c.GetString(KeyTerminalID); term != "" {
		return "staff:" + itoa(id) + "@" + term
	}
	return "staff:" + itoa(id)
}
