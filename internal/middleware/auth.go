package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
	"github.com/jirateep12z/go-starter-api/internal/security"
	"github.com/jirateep12z/go-starter-api/internal/service"
)

const currentUserKey = "current_user"

// UserLoader resolves the authenticated user with its role attached.
type UserLoader interface {
	FindByEmailWithRole(ctx context.Context, email string) (models.User, error)
}

// Auth validates the bearer token, loads the user once per request and puts
// it on the context. The session activity touch runs detached so a slow or
// failing write never delays the response.
func Auth(jwtSecret string, users UserLoader, sessions *service.SessionService, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := security.ParseToken(token, jwtSecret)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		user, err := users.FindByEmailWithRole(c.Request.Context(), claims.Email)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				abortUnauthorized(c)
				return
			}
			log.Error().Err(err).Msg("auth user lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !user.IsActive {
			abortUnauthorized(c)
			return
		}

		c.Set(currentUserKey, user)

		if sessions != nil {
			ip := c.ClientIP()
			ua := c.Request.UserAgent()
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				sessions.UpdateUserSessionActivity(ctx, user.ID, ip, ua)
			}()
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// CurrentUser returns the authenticated user set by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
