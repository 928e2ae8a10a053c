// Package audit reports diagram saves to an external endpoint. Reporting
// is best effort: failures are logged and never reach the user.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"drawflow-backend/internal/config"
	"drawflow-backend/internal/model"
	"drawflow-backend/internal/utils"
	"drawflow-backend/pkg/logger"
)

type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns nil when no endpoint is configured.
func NewClient(cfg config.AuditConfig) *Client {
	if cfg.Endpoint == "" {
		return nil
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		http:     utils.NewHTTPClient(timeout),
	}
}

// Record posts ev and logs the outcome. A nil Client records nothing.
func (c *Client) Record(ctx context.Context, ev model.SaveEvent) {
	if c == nil {
		return
	}
	if err := c.send(ctx, ev); err != nil {
		logger.Warnf("Failed to record save of %s: %v", ev.Filename, err)
		return
	}
	logger.Debugf("Recorded save of %s (%s)", ev.Filename, ev.Format)
}

func (c *Client) send(ctx context.Context, ev model.SaveEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
