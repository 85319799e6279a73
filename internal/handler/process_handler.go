package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/licitarag/internal/pkg/errcode"
	"github.com/xxxsen/licitarag/internal/pkg/response"
	"github.com/xxxsen/licitarag/internal/service"
)

type ProcessHandler struct {
	process        *service.ProcessService
	maxUploadBytes int64
}

func NewProcessHandler(process *service.ProcessService, maxUploadBytes int64) *ProcessHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &ProcessHandler{process: process, maxUploadBytes: maxUploadBytes}
}

func (h *ProcessHandler) Process(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if file.Size > h.maxUploadBytes {
		response.Error(c, errcode.ErrInvalidFile, "file too large, limit "+formatUploadLimit(h.maxUploadBytes))
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	res, err := h.process.Process(c.Request.Context(), service.ProcessInput{
		Filename: file.Filename,
		Body:     opened,
		Hint:     c.DefaultPostForm("formato", "generico"),
		Output:   c.DefaultPostForm("output", service.OutputCSV),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
