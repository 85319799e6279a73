package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/licitarag/internal/middleware"
)

type RouterDeps struct {
	Process       *ProcessHandler
	Chat          *ChatHandler
	Documents     *DocumentHandler
	Files         *FileHandler
	ChatRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/extractor/process", deps.Process.Process)
	api.POST("/chat", middleware.RateLimit(deps.ChatRateLimit), deps.Chat.Chat)
	api.GET("/documents/:id/bidding-info", deps.Chat.BiddingInfo)
	api.GET("/documents/:id", deps.Documents.Get)
	api.GET("/files/:key", deps.Files.Get)
}
