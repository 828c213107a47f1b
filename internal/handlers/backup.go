package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/service"
)

type backupResponse struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

func toBackupResponse(backup service.BackupFile) backupResponse {
	return backupResponse{
		Name:      backup.Name,
		Size:      backup.Size,
		Kind:      backup.Kind,
		CreatedAt: backup.CreatedAt,
	}
}

type createBackupRequest struct {
	Kind string `json:"kind" binding:"required,oneof=database uploads"`
}

func (h HandlerSet) CreateBackup(c *gin.Context) {
	var req createBackupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		backup service.BackupFile
		err    error
	)
	switch req.Kind {
	case "database":
		backup, err = h.backupService.CreateDatabaseBackup(c.Request.Context())
	case "uploads":
		backup, err = h.backupService.CreateUploadsBackup(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBackupResponse(backup))
}

func (h HandlerSet) ListBackups(c *gin.Context) {
	backups, err := h.backupService.ListBackups()
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]backupResponse, 0, len(backups))
	for _, backup := range backups {
		resp = append(resp, toBackupResponse(backup))
	}
	c.JSON(http.StatusOK, gin.H{"backups": resp})
}

func (h HandlerSet) BackupStats(c *gin.Context) {
	stats, err := h.backupService.GetBackupStats()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":     stats.Count,
		"totalSize": stats.TotalSize,
		"oldest":    stats.Oldest,
		"newest":    stats.Newest,
	})
}

func (h HandlerSet) DeleteBackup(c *gin.Context) {
	if err := h.backupService.DeleteBackup(c.Param("name")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
