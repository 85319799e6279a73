package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/licitarag/internal/pkg/response"
	"github.com/xxxsen/licitarag/internal/service"
)

type DocumentHandler struct {
	process *service.ProcessService
}

func NewDocumentHandler(process *service.ProcessService) *DocumentHandler {
	return &DocumentHandler{process: process}
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.process.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}
