package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/middleware"
	"github.com/jirateep12z/go-starter-api/internal/service"
)

type createUserRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required,min=8"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	RoleID    *string `json:"roleId"`
	IsActive  *bool   `json:"isActive"`
}

func (h HandlerSet) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    req.RoleID,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h HandlerSet) ListUsers(c *gin.Context) {
	users, err := h.userService.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]userResponse, 0, len(users))
	for _, user := range users {
		resp = append(resp, toUserResponse(user))
	}
	c.JSON(http.StatusOK, gin.H{"users": resp})
}

func (h HandlerSet) GetUser(c *gin.Context) {
	user, err := h.userService.FindOne(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

type updateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	Password  *string `json:"password" binding:"omitempty,min=8"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	RoleID    *string `json:"roleId"`
	IsActive  *bool   `json:"isActive"`
}

func (h HandlerSet) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Update(c.Request.Context(), c.Param("id"), service.UpdateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleID:    req.RoleID,
		IsActive:  req.IsActive,
	}, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (h HandlerSet) DeleteUser(c *gin.Context) {
	if err := h.userService.Remove(c.Request.Context(), c.Param("id"), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func currentUserID(c *gin.Context) *string {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return nil
	}
	id := user.ID
	return &id
}
