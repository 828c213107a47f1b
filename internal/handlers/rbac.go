package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/service"
)

type permissionResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type roleResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Slug        string               `json:"slug"`
	Description *string              `json:"description"`
	IsActive    bool                 `json:"isActive"`
	IsSystem    bool                 `json:"isSystem"`
	Priority    int                  `json:"priority"`
	Permissions []permissionResponse `json:"permissions"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func toPermissionResponse(p models.Permission) permissionResponse {
	return permissionResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toRoleResponse(role models.Role) roleResponse {
	permissions := make([]permissionResponse, 0, len(role.Permissions))
	for _, p := range role.Permissions {
		permissions = append(permissions, toPermissionResponse(p))
	}
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Slug:        role.Slug,
		Description: role.Description,
		IsActive:    role.IsActive,
		IsSystem:    role.IsSystem,
		Priority:    role.Priority,
		Permissions: permissions,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

type createRoleRequest struct {
	Name          string   `json:"name" binding:"required"`
	Slug          string   `json:"slug" binding:"required"`
	Description   *string  `json:"description"`
	Priority      int      `json:"priority"`
	IsActive      *bool    `json:"isActive"`
	PermissionIDs []string `json:"permissionIds"`
}

func (h HandlerSet) CreateRole(c *gin.Context) {
	var req createRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.rbacService.CreateRole(c.Request.Context(), service.CreateRoleInput{
		Name:          req.Name,
		Slug:          req.Slug,
		Description:   req.Description,
		Priority:      req.Priority,
		IsActive:      req.IsActive,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRoleResponse(role))
}

func (h HandlerSet) ListRoles(c *gin.Context) {
	roles, err := h.rbacService.FindAllRoles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		resp = append(resp, toRoleResponse(role))
	}
	c.JSON(http.StatusOK, gin.H{"roles": resp})
}

func (h HandlerSet) GetRole(c *gin.Context) {
	role, err := h.rbacService.FindOneRole(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

type updateRoleRequest struct {
	Name          *string  `json:"name"`
	Slug          *string  `json:"slug"`
	Description   *string  `json:"description"`
	Priority      *int     `json:"priority"`
	IsActive      *bool    `json:"isActive"`
	PermissionIDs []string `json:"permissionIds"`
}

func (h HandlerSet) UpdateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.rbacService.UpdateRole(c.Request.Context(), c.Param("id"), service.UpdateRoleInput{
		Name:          req.Name,
		Slug:          req.Slug,
		Description:   req.Description,
		Priority:      req.Priority,
		IsActive:      req.IsActive,
		PermissionIDs: req.PermissionIDs,
	}, callerPriority(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

func (h HandlerSet) DeleteRole(c *gin.Context) {
	if err := h.rbacService.DeleteRole(c.Request.Context(), c.Param("id"), callerPriority(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type assignPermissionsRequest struct {
	PermissionIDs []string `json:"permissionIds" binding:"required"`
}

func (h HandlerSet) AssignRolePermissions(c *gin.Context) {
	var req assignPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := h.rbacService.AssignPermissionsToRole(c.Request.Context(), c.Param("id"), req.PermissionIDs, callerPriority(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRoleResponse(role))
}

type createPermissionRequest struct {
	Name        string  `json:"name" binding:"required"`
	Slug        string  `json:"slug" binding:"required"`
	Description *string `json:"description"`
	Resource    string  `json:"resource" binding:"required"`
	Action      string  `json:"action" binding:"required"`
	IsActive    *bool   `json:"isActive"`
}

func (h HandlerSet) CreatePermission(c *gin.Context) {
	var req createPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	permission, err := h.rbacService.CreatePermission(c.Request.Context(), service.CreatePermissionInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPermissionResponse(permission))
}

func (h HandlerSet) ListPermissions(c *gin.Context) {
	permissions, err := h.rbacService.FindAllPermissions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]permissionResponse, 0, len(permissions))
	for _, permission := range permissions {
		resp = append(resp, toPermissionResponse(permission))
	}
	c.JSON(http.StatusOK, gin.H{"permissions": resp})
}

func (h HandlerSet) GetPermission(c *gin.Context) {
	permission, err := h.rbacService.FindOnePermission(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPermissionResponse(permission))
}

type updatePermissionRequest struct {
	Name        *string `json:"name"`
	Slug        *string `json:"slug"`
	Description *string `json:"description"`
	Resource    *string `json:"resource"`
	Action      *string `json:"action"`
	IsActive    *bool   `json:"isActive"`
}

func (h HandlerSet) UpdatePermission(c *gin.Context) {
	var req updatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	permission, err := h.rbacService.UpdatePermission(c.Request.Context(), c.Param("id"), service.UpdatePermissionInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Resource:    req.Resource,
		Action:      req.Action,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPermissionResponse(permission))
}

func (h HandlerSet) DeletePermission(c *gin.Context) {
	if err := h.rbacService.DeletePermission(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
