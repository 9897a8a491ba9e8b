package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vnkhanh/e-learning-backend/middleware"
	"github.com/vnkhanh/e-learning-backend/services"
	"github.com/vnkhanh/e-learning-backend/utils"
)

type UploadController struct {
	uploads *services.UploadService
	log     *utils.Logger
}

func NewUploadController(uploads *services.UploadService, log *utils.Logger) *UploadController {
	return &UploadController{uploads: uploads, log: log}
}

// POST /api/admin/uploads/:kind (multipart, field "file")
func (h *UploadController) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Thiếu file upload", "code": "invalid_argument"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không đọc được file", "code": "invalid_argument"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Không đọc được file", "code": "invalid_argument"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	result, err := h.uploads.Upload(c.Request.Context(), middleware.GetSession(c),
		services.UploadKind(c.Param("kind")), fileHeader.Filename, contentType, data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// DELETE /api/admin/uploads?url=<public url>
func (h *UploadController) Remove(c *gin.Context) {
	if err := h.uploads.Remove(c.Request.Context(), middleware.GetSession(c), c.Query("url")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Đã xóa file"})
}
