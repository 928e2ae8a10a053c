package handler

import (
	"net/http"

	"drawflow-backend/internal/model"
	"drawflow-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// LogSave receives save audit records. It never fails the caller.
func LogSave(c *gin.Context) {
	var ev model.SaveEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		logger.Warnf("Malformed save record: %v", err)
		c.Status(http.StatusNoContent)
		return
	}

	logger.WithFields(map[string]interface{}{
		"filename":   ev.Filename,
		"format":     ev.Format,
		"session_id": ev.SessionID,
	}).Info("diagram saved")
	c.Status(http.StatusNoContent)
}
