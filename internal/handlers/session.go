package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/middleware"
	"github.com/jirateep12z/go-starter-api/internal/models"
)

type sessionResponse struct {
	ID           string     `json:"id"`
	IPAddress    string     `json:"ipAddress"`
	UserAgent    string     `json:"userAgent"`
	IsActive     bool       `json:"isActive"`
	LastActivity *time.Time `json:"lastActivity"`
	ExpiresAt    time.Time  `json:"expiresAt"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func toSessionResponse(session models.Session) sessionResponse {
	return sessionResponse{
		ID:           session.ID,
		IPAddress:    session.IPAddress,
		UserAgent:    session.UserAgent,
		IsActive:     session.IsActive,
		LastActivity: session.LastActivity,
		ExpiresAt:    session.ExpiresAt,
		CreatedAt:    session.CreatedAt,
	}
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessions, err := h.sessionService.FindUserSessions(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		resp = append(resp, toSessionResponse(session))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

func (h HandlerSet) SessionStats(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	stats, err := h.sessionService.GetSessionStats(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totalSessions":  stats.TotalSessions,
		"activeSessions": stats.ActiveSessions,
		"devices":        stats.Devices,
	})
}

func (h HandlerSet) RevokeSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.sessionService.RevokeSession(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) RevokeAllSessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.sessionService.RevokeAllUserSessions(c.Request.Context(), user.ID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
