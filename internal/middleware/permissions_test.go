package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

func newGuardedRouter(user *models.User, required ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/guarded",
		func(c *gin.Context) {
			if user != nil {
				c.Set(currentUserKey, *user)
			}
		},
		RequirePermissions(required...),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)
	return router
}

func performGet(router *gin.Engine) int {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequirePermissions(t *testing.T) {
	granted := &models.User{
		ID: "user-1",
		Role: &models.Role{
			IsActive: true,
			Permissions: []models.Permission{
				{Slug: "users.view", IsActive: true},
				{Slug: "users.update", IsActive: true},
			},
		},
	}

	require.Equal(t, http.StatusOK, performGet(newGuardedRouter(granted, "users.view")))
	require.Equal(t, http.StatusOK, performGet(newGuardedRouter(granted, "users.view", "users.update")))
	require.Equal(t, http.StatusForbidden, performGet(newGuardedRouter(granted, "users.view", "users.delete")),
		"all listed permissions are required")

	roleless := &models.User{ID: "user-2"}
	require.Equal(t, http.StatusForbidden, performGet(newGuardedRouter(roleless, "users.view")))

	inactiveRole := &models.User{
		ID: "user-3",
		Role: &models.Role{
			IsActive:    false,
			Permissions: []models.Permission{{Slug: "users.view", IsActive: true}},
		},
	}
	require.Equal(t, http.StatusForbidden, performGet(newGuardedRouter(inactiveRole, "users.view")))

	require.Equal(t, http.StatusUnauthorized, performGet(newGuardedRouter(nil, "users.view")),
		"no authenticated user on the context")
}
