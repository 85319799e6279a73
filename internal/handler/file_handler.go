package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/service"
)

type FileHandler struct {
	files *service.FileService
}

func NewFileHandler(files *service.FileService) *FileHandler {
	return &FileHandler{files: files}
}

// Get streams a generated artifact. The token query parameter must be a
// download token issued for this key.
func (h *FileHandler) Get(c *gin.Context) {
	key := c.Param("key")
	file, err := h.files.Open(c.Request.Context(), key, c.Query("token"))
	if err != nil {
		switch {
		case appErr.IsNotFound(err):
			c.Status(http.StatusNotFound)
		case errors.Is(err, appErr.ErrUnauthorized):
			c.Status(http.StatusUnauthorized)
		case errors.Is(err, appErr.ErrInvalid):
			c.Status(http.StatusBadRequest)
		default:
			handleError(c, err)
		}
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+key+`"`)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
