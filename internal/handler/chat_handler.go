package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/licitarag/internal/pkg/errcode"
	"github.com/xxxsen/licitarag/internal/pkg/response"
	"github.com/xxxsen/licitarag/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type chatRequest struct {
	ContentID string `json:"content_id"`
	Query     string `json:"query"`
	TopK      int    `json:"top_k"`
	MaxTokens int    `json:"max_tokens"`
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	ans, err := h.chat.Ask(c.Request.Context(), req.ContentID, req.Query, req.TopK, req.MaxTokens)
	if err != nil {
		handleError(c, err)
		return
	}
	scores := make([]float32, 0, len(ans.Context))
	for _, item := range ans.Context {
		scores = append(scores, item.Similarity)
	}
	response.Success(c, gin.H{
		"response":          ans.Response,
		"context_used":      ans.Context,
		"similarity_scores": scores,
	})
}

func (h *ChatHandler) BiddingInfo(c *gin.Context) {
	info, err := h.chat.BiddingInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}
