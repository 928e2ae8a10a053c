package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"drawflow-backend/internal/audit"
	"drawflow-backend/internal/bridge"
	"drawflow-backend/internal/config"
	"drawflow-backend/internal/editor"
	"drawflow-backend/internal/handler"
	"drawflow-backend/internal/llm"
	"drawflow-backend/internal/service"
	"drawflow-backend/internal/storage"
	"drawflow-backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func NewServeCommand(root *RootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root.cfg, sessionID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session to load at startup")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, sessionID string) error {
	store, err := storage.New(ctx, cfg.Storage)
	if errors.Is(err, storage.ErrStoreUnavailable) {
		logger.Warnf("Session store unavailable (%v), sessions will not persist", err)
		store = nil
	} else if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	var auditor editor.Auditor
	if c := audit.NewClient(cfg.Audit); c != nil {
		auditor = c
	}

	hub := bridge.NewHub(cfg.Editor.CommandBuffer)
	ed := editor.New(hub, cfg.Editor, auditor)
	hub.SetLifecycle(ed)

	chatModel, err := llm.NewVisionModel(ctx, cfg.Model)
	if errors.Is(err, llm.ErrNoProvider) {
		logger.Info("No model provider configured, diagram validation disabled")
	} else if err != nil {
		logger.Warnf("Vision model unavailable, diagram validation disabled: %v", err)
		chatModel = nil
	}

	validator, err := service.NewValidator(ctx, chatModel)
	if err != nil {
		return err
	}

	ws := service.NewWorkspace(service.NewSessionManager(store, cfg.Session), ed, validator, cfg.Session.AutosaveDelay)
	if err := ws.Init(ctx, sessionID); err != nil {
		return fmt.Errorf("init sessions: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        handler.NewRouter(cfg, ws, hub),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := ws.FlushAutosave(shutdownCtx); err != nil {
		logger.Warnf("Final autosave failed: %v", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
	return nil
}
