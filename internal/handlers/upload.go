package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jirateep12z/go-starter-api/internal/middleware"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/service"
)

type fileResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType"`
	FileType     string    `json:"fileType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toFileResponse(file models.File) fileResponse {
	return fileResponse{
		ID:           file.ID,
		OriginalName: file.OriginalName,
		MimeType:     file.MimeType,
		FileType:     file.FileType,
		Size:         file.Size,
		CreatedAt:    file.CreatedAt,
	}
}

func (h HandlerSet) UploadFile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	src, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read uploaded file"})
		return
	}
	defer src.Close()

	file, err := h.uploadService.Upload(c.Request.Context(), service.UploadInput{
		OwnerID:      user.ID,
		OriginalName: header.Filename,
		MimeType:     header.Header.Get("Content-Type"),
		Size:         header.Size,
		Reader:       src,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toFileResponse(file))
}

func (h HandlerSet) ListFiles(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	files, err := h.uploadService.FindByOwner(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]fileResponse, 0, len(files))
	for _, file := range files {
		resp = append(resp, toFileResponse(file))
	}
	c.JSON(http.StatusOK, gin.H{"files": resp})
}

func (h HandlerSet) DownloadFile(c *gin.Context) {
	url, err := h.uploadService.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h HandlerSet) DeleteFile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	// Holders of files.manage may delete any file; owners only their own.
	ownerID := user.ID
	if service.HasAllPermissions(user.Role, "files.manage") {
		ownerID = ""
	}

	if err := h.uploadService.Delete(c.Request.Context(), c.Param("id"), ownerID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
