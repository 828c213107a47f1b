package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/service"
)

type templateResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Channel   string    `json:"channel"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toTemplateResponse(tpl models.NotificationTemplate) templateResponse {
	return templateResponse{
		ID:        tpl.ID,
		Code:      tpl.Code,
		Name:      tpl.Name,
		Channel:   string(tpl.Channel),
		Subject:   tpl.Subject,
		Body:      tpl.Body,
		IsActive:  tpl.IsActive,
		CreatedAt: tpl.CreatedAt,
		UpdatedAt: tpl.UpdatedAt,
	}
}

type createTemplateRequest struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Channel  string `json:"channel" binding:"required"`
	Subject  string `json:"subject"`
	Body     string `json:"body" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

func (h HandlerSet) CreateTemplate(c *gin.Context) {
	var req createTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tpl, err := h.notifyService.CreateTemplate(c.Request.Context(), service.CreateTemplateInput{
		Code:     req.Code,
		Name:     req.Name,
		Channel:  models.NotificationChannel(req.Channel),
		Subject:  req.Subject,
		Body:     req.Body,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTemplateResponse(tpl))
}

func (h HandlerSet) ListTemplates(c *gin.Context) {
	templates, err := h.notifyService.FindAllTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]templateResponse, 0, len(templates))
	for _, tpl := range templates {
		resp = append(resp, toTemplateResponse(tpl))
	}
	c.JSON(http.StatusOK, gin.H{"templates": resp})
}

func (h HandlerSet) GetTemplate(c *gin.Context) {
	tpl, err := h.notifyService.FindTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTemplateResponse(tpl))
}

type updateTemplateRequest struct {
	Code     *string `json:"code"`
	Name     *string `json:"name"`
	Channel  *string `json:"channel"`
	Subject  *string `json:"subject"`
	Body     *string `json:"body"`
	IsActive *bool   `json:"isActive"`
}

func (h HandlerSet) UpdateTemplate(c *gin.Context) {
	var req updateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	input := service.UpdateTemplateInput{
		Code:     req.Code,
		Name:     req.Name,
		Subject:  req.Subject,
		Body:     req.Body,
		IsActive: req.IsActive,
	}
	if req.Channel != nil {
		channel := models.NotificationChannel(*req.Channel)
		input.Channel = &channel
	}

	tpl, err := h.notifyService.UpdateTemplate(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTemplateResponse(tpl))
}

func (h HandlerSet) DeleteTemplate(c *gin.Context) {
	if err := h.notifyService.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type sendNotificationRequest struct {
	Code    string         `json:"code" binding:"required"`
	Payload map[string]any `json:"payload"`
}

func (h HandlerSet) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notifyService.SendByCode(c.Request.Context(), req.Code, req.Payload); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
