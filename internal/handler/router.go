package handler

import (
	"net/http"
	"time"

	"drawflow-backend/internal/bridge"
	"drawflow-backend/internal/config"
	"drawflow-backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires every API route. hub may be nil when the editor runs
// in-process, in which case the editor transport routes are not mounted.
func NewRouter(cfg *config.Config, ws *service.Workspace, hub *bridge.Hub) *gin.Engine {
	router := gin.New()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
			"storage":   ws.Sessions().Available(),
			"editor":    ws.Editor().State().String(),
		})
	})

	api := router.Group("/api")
	{
		NewSessionHandler(ws).Register(api.Group("/sessions"))
		NewDiagramHandler(ws).Register(api.Group("/diagram"))
		if hub != nil {
			NewEditorHandler(hub, ws.Editor()).Register(api.Group("/editor"))
		}
		api.POST("/log-save", LogSave)
	}

	return router
}
