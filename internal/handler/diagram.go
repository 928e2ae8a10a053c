package handler

import (
	"errors"
	"fmt"
	"net/http"

	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/model"
	"drawflow-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type DiagramHandler struct {
	ws *service.Workspace
}

func NewDiagramHandler(ws *service.Workspace) *DiagramHandler {
	return &DiagramHandler{ws: ws}
}

func (h *DiagramHandler) Register(r *gin.RouterGroup) {
	r.GET("", h.Get)
	r.POST("/load", h.Load)
	r.POST("/clear", h.Clear)
	r.POST("/export", h.Export)
	r.GET("/thumbnail", h.Thumbnail)
	r.POST("/validate", h.Validate)
	r.POST("/save-file", h.SaveFile)
	r.GET("/history", h.History)
}

func (h *DiagramHandler) Get(c *gin.Context) {
	ed := h.ws.Editor()
	c.JSON(http.StatusOK, model.DiagramResponse{
		Document: ed.Document(),
		History:  ed.History(),
		Ready:    ed.Ready(),
	})
}

func (h *DiagramHandler) Load(c *gin.Context) {
	var req model.LoadDiagramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if verr := h.ws.Editor().LoadDiagram(c.Request.Context(), req.XML, req.SkipValidation); verr != nil {
		c.JSON(http.StatusUnprocessableEntity, verr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": h.ws.Editor().Document()})
}

func (h *DiagramHandler) Clear(c *gin.Context) {
	h.ws.Editor().ClearDiagram(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (h *DiagramHandler) Export(c *gin.Context) {
	var req model.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ed := h.ws.Editor()
	export := ed.ExportWithoutHistory
	if req.WithHistory {
		export = ed.Export
	}
	if err := export(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *DiagramHandler) Thumbnail(c *gin.Context) {
	c.JSON(http.StatusOK, model.ThumbnailResponse{
		Thumbnail: h.ws.Editor().Thumbnail(c.Request.Context()),
	})
}

// Validate answers 204 when a newer validation took over this one.
func (h *DiagramHandler) Validate(c *gin.Context) {
	result, err := h.ws.Validate(c.Request.Context())
	if errors.Is(err, service.ErrValidationSuperseded) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// SaveFile answers 204 when a newer save took over this one.
func (h *DiagramHandler) SaveFile(c *gin.Context) {
	var req model.SaveFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = h.ws.Sessions().CurrentID()
	}

	artifact, err := h.ws.Editor().SaveToFile(c.Request.Context(), req.Filename, req.Format, sessionID)
	if editor.IsSuperseded(err) {
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	c.Data(http.StatusOK, artifact.MimeType, artifact.Content)
}

func (h *DiagramHandler) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.ws.Editor().History()})
}
