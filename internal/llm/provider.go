// Package llm builds the vision-capable chat model used to check rendered
// diagrams.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"drawflow-backend/internal/config"
	"drawflow-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
)

// ErrNoProvider means no model is configured and validation is disabled.
var ErrNoProvider = errors.New("no model provider configured")

// NewVisionModel creates the chat model selected by cfg.Provider.
func NewVisionModel(ctx context.Context, cfg config.ModelConfig) (einoModel.ChatModel, error) {
	switch cfg.Provider {
	case "doubao", "ark":
		return newDoubaoModel(ctx, cfg.Doubao)
	case "qwen":
		return newQwenModel(ctx, cfg.Qwen)
	case "openai":
		return newOpenAIChatModel(ctx, cfg.OpenAI)
	case "":
		return nil, ErrNoProvider
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Provider)
	}
}

func maskKey(key string) string {
	if len(key) > 10 {
		return key[:10] + "..."
	}
	return strings.Repeat("*", len(key))
}

func newDoubaoModel(ctx context.Context, cfg config.DoubaoConfig) (einoModel.ChatModel, error) {
	logger.Infof("Using Doubao model %s (key %s)", cfg.Model, maskKey(cfg.APIKey))

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create doubao model: %w", err)
	}
	return chatModel, nil
}

func newQwenModel(ctx context.Context, cfg config.QwenConfig) (einoModel.ChatModel, error) {
	logger.Infof("Using Qwen model %s at %s (key %s)", cfg.Model, cfg.BaseURL, maskKey(cfg.APIKey))

	httpClient := &http.Client{
		Transport: newDebugTransport(nil, cfg.DebugRequest),
		Timeout:   cfg.Timeout,
	}

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create qwen model: %w", err)
	}
	return chatModel, nil
}

// debugTransport logs outgoing model requests at debug level. Bodies carry
// base64 images, so only their size is logged.
type debugTransport struct {
	base    http.RoundTripper
	enabled bool
}

func newDebugTransport(base http.RoundTripper, enabled bool) *debugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &debugTransport{base: base, enabled: enabled}
}

func (t *debugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.enabled && req.Method == http.MethodPost {
		headers := make(map[string]interface{}, len(req.Header))
		for name, values := range req.Header {
			if isSensitiveHeader(name) {
				headers[name] = "[REDACTED]"
				continue
			}
			headers[name] = strings.Join(values, ", ")
		}
		logger.WithFields(map[string]interface{}{
			"method":  req.Method,
			"url":     req.URL.String(),
			"headers": headers,
			"size":    req.ContentLength,
		}).Debug("model request")
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil && t.enabled {
		logger.Debugf("model request failed: %v", err)
	}
	return resp, err
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range []string{"authorization", "x-api-key", "x-auth-token", "cookie"} {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}
