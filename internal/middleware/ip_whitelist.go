package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/service"
)

// IPWhitelist blocks clients outside the allow-list. Lookup failures fail
// open: an unreachable database should not lock everyone out.
func IPWhitelist(whitelist *service.IPWhitelistService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := whitelist.IsAllowed(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Error().Err(err).Msg("ip whitelist lookup failed")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
