package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/service"
)

// RequirePermissions rejects the request unless the authenticated user's
// role carries every listed permission.
func RequirePermissions(permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortUnauthorized(c)
			return
		}

		if !service.HasAllPermissions(user.Role, permissions...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}

		c.Next()
	}
}
