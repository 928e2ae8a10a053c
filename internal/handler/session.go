package handler

import (
	"net/http"

	"drawflow-backend/internal/model"
	"drawflow-backend/internal/service"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	ws *service.Workspace
}

func NewSessionHandler(ws *service.Workspace) *SessionHandler {
	return &SessionHandler{ws: ws}
}

func (h *SessionHandler) Register(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.POST("/refresh", h.Refresh)
	r.GET("/current", h.Current)
	r.POST("/switch", h.Switch)
	r.POST("/external", h.External)
	r.POST("/save", h.Save)
	r.POST("/new", h.New)
	r.DELETE("/:session_id", h.Delete)
}

func (h *SessionHandler) listResponse() model.SessionListResponse {
	sessions := h.ws.Sessions()
	return model.SessionListResponse{
		Sessions:  sessions.Sessions(),
		CurrentID: sessions.CurrentID(),
		Available: sessions.Available(),
	}
}

func (h *SessionHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *SessionHandler) Refresh(c *gin.Context) {
	if err := h.ws.Sessions().RefreshSessions(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *SessionHandler) Current(c *gin.Context) {
	sessions := h.ws.Sessions()
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessions.CurrentID(),
		"session":    sessions.Current(),
	})
}

func (h *SessionHandler) Switch(c *gin.Context) {
	var req model.SwitchSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := h.ws.SwitchSession(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"switched":   data != nil,
		"session_id": h.ws.Sessions().CurrentID(),
		"session":    data,
	})
}

func (h *SessionHandler) External(c *gin.Context) {
	var req model.ExternalSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := h.ws.ApplyExternalID(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"switched":   data != nil,
		"session_id": h.ws.Sessions().CurrentID(),
		"session":    data,
	})
}

func (h *SessionHandler) Save(c *gin.Context) {
	var req model.SaveSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	save := service.SaveRequest{
		Messages:     req.Messages,
		XMLSnapshots: req.XMLSnapshots,
	}
	if req.ForSessionID != nil {
		save.Token = service.TokenFor(*req.ForSessionID)
	}

	if req.Debounce {
		h.ws.ScheduleSave(save)
		c.JSON(http.StatusAccepted, gin.H{"scheduled": true})
		return
	}

	if err := h.ws.Save(c.Request.Context(), save); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *SessionHandler) New(c *gin.Context) {
	h.ws.NewSession(c.Request.Context())
	c.JSON(http.StatusOK, h.listResponse())
}

func (h *SessionHandler) Delete(c *gin.Context) {
	wasCurrent, err := h.ws.DeleteSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.DeleteSessionResponse{WasCurrentSession: wasCurrent})
}
