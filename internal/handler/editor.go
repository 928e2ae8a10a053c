package handler

import (
	"net/http"
	"time"

	"drawflow-backend/internal/bridge"
	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"
	"drawflow-backend/internal/utils"
	"drawflow-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	EventReady    = "ready"
	EventExport   = "export"
	EventTeardown = "teardown"
)

// EditorHandler connects the page hosting the editor: commands flow down an
// SSE stream, events come back as POSTs.
type EditorHandler struct {
	hub       *bridge.Hub
	editor    *editor.Editor
	heartbeat time.Duration
}

func NewEditorHandler(hub *bridge.Hub, ed *editor.Editor) *EditorHandler {
	return &EditorHandler{hub: hub, editor: ed, heartbeat: 30 * time.Second}
}

func (h *EditorHandler) Register(r *gin.RouterGroup) {
	r.GET("/stream", h.Stream)
	r.POST("/events", h.Event)
}

func (h *EditorHandler) Stream(c *gin.Context) {
	stream := h.hub.Attach()
	defer h.hub.Detach(stream)

	sse := utils.NewSSEWriter(c.Writer)
	if err := sse.WriteJSON("connected", gin.H{"stream_id": stream.ID}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case cmd := <-stream.Commands():
			if err := sse.WriteJSON(cmd.Type, cmd); err != nil {
				logger.Warnf("Editor stream %s write failed: %v", stream.ID, err)
				return
			}
		case <-ticker.C:
			if err := sse.Heartbeat(); err != nil {
				return
			}
		case <-stream.Done():
			return
		case <-c.Request.Context().Done():
			logger.Debugf("Editor stream %s closed by client", stream.ID)
			return
		}
	}
}

func (h *EditorHandler) Event(c *gin.Context) {
	var ev model.EditorEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if ev.StreamID != "" && ev.StreamID != h.hub.Current() {
		logger.Debugf("Ignoring %s event from stale stream %s", ev.Event, ev.StreamID)
		c.JSON(http.StatusConflict, gin.H{"error": "stale editor stream"})
		return
	}

	switch ev.Event {
	case EventReady:
		if err := h.editor.OnReady(c.Request.Context()); err != nil {
			respondError(c, err)
			return
		}
	case EventExport:
		h.editor.OnExport(ev.Data)
	case EventTeardown:
		h.editor.OnTeardown()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event " + ev.Event})
		return
	}
	c.Status(http.StatusNoContent)
}
