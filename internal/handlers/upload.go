package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadHandler accepts report images. Files land in a flat local directory
// served under /uploads.
type UploadHandler struct {
	uploadDir string
	maxSize   int64
}

// allowedImageTypes maps accepted content types to file extensions.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

func NewUploadHandler(uploadDir string, maxSize int64) (*UploadHandler, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}
	return &UploadHandler{uploadDir: uploadDir, maxSize: maxSize}, nil
}

// UploadImage stores one multipart image under a generated name and returns
// its public URL path.
func (h *UploadHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Image file is required",
		})
		return
	}

	if file.Size > h.maxSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "File is too large",
		})
		return
	}

	contentType := file.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Only JPEG, PNG and WebP images are allowed",
		})
		return
	}

	filename := uuid.NewString() + ext
	dst := filepath.Join(h.uploadDir, filename)

	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error saving file",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"url":      "/uploads/" + filename,
		"filename": filename,
	})
}
