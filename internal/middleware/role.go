package middleware

import (
	"net/http"
	"strconv"

	"teesheet/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// Staff roles.
const (
	RoleAdmin   = "admin"
	RoleDesk    = "desk"
	RoleStarter = "starter"
)

// RequireRole ensures that the authenticated staff member has one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(KeyRole)
		if role == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Role not found in token")
			c.Abort()
			return
		}

		if _, ok := allowed[role]; !ok {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient permissions")
			c.Abort()
			return
		}

		c.Next()
	}
}

// AdminOnly middleware requires admin role
func AdminOnly() gin.HandlerFunc {
	return RequireRole(RoleAdmin)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
