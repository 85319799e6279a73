package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/licitarag/internal/ai"
	"github.com/xxxsen/licitarag/internal/middleware"
	"github.com/xxxsen/licitarag/internal/pkg/errcode"
	appErr "github.com/xxxsen/licitarag/internal/pkg/errors"
	"github.com/xxxsen/licitarag/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get(middleware.ContextRequestIDKey)
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, appErr.ErrMalformedInput):
		response.Error(c, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrUnrecognizedMunicipality):
		response.Error(c, errcode.ErrUnrecognizedMunicipality, err.Error())
	case errors.Is(err, appErr.ErrExtractionFailed):
		response.Error(c, errcode.ErrExtractionFailed, err.Error())
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai not configured")
	case errors.Is(err, appErr.ErrExternalProvider):
		response.Error(c, errcode.ErrExternalProvider, "external provider failure")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
