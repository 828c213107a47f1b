package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/service"
)

type ipWhitelistResponse struct {
	ID          string    `json:"id"`
	CIDR        string    `json:"cidr"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toIPWhitelistResponse(entry models.IPWhitelistEntry) ipWhitelistResponse {
	return ipWhitelistResponse{
		ID:          entry.ID,
		CIDR:        entry.CIDR,
		Description: entry.Description,
		IsActive:    entry.IsActive,
		CreatedAt:   entry.CreatedAt,
		UpdatedAt:   entry.UpdatedAt,
	}
}

type createIPWhitelistRequest struct {
	CIDR        string  `json:"cidr" binding:"required"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (h HandlerSet) CreateIPWhitelist(c *gin.Context) {
	var req createIPWhitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.ipWhitelistService.Create(c.Request.Context(), service.CreateIPWhitelistInput{
		CIDR:        req.CIDR,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toIPWhitelistResponse(entry))
}

func (h HandlerSet) ListIPWhitelist(c *gin.Context) {
	entries, err := h.ipWhitelistService.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]ipWhitelistResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, toIPWhitelistResponse(entry))
	}
	c.JSON(http.StatusOK, gin.H{"entries": resp})
}

func (h HandlerSet) GetIPWhitelist(c *gin.Context) {
	entry, err := h.ipWhitelistService.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIPWhitelistResponse(entry))
}

type updateIPWhitelistRequest struct {
	CIDR        *string `json:"cidr"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func (h HandlerSet) UpdateIPWhitelist(c *gin.Context) {
	var req updateIPWhitelistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.ipWhitelistService.Update(c.Request.Context(), c.Param("id"), service.UpdateIPWhitelistInput{
		CIDR:        req.CIDR,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toIPWhitelistResponse(entry))
}

func (h HandlerSet) DeleteIPWhitelist(c *gin.Context) {
	if err := h.ipWhitelistService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
