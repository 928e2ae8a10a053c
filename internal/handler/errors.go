package handler

import (
	"errors"
	"net/http"

	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/service"
	"drawflow-backend/internal/storage"
	"drawflow-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case service.IsNotFound(err), errors.Is(err, storage.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrUnsupportedFormat), errors.Is(err, storage.ErrInvalidData):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrNotConnected), errors.Is(err, storage.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case editor.IsTimeout(err):
		return http.StatusGatewayTimeout
	case editor.IsSuperseded(err), errors.Is(err, service.ErrValidationSuperseded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusGatewayTimeout {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
