// Package heartbeat posts liveness reports to the status server.
package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"status-notification/internal/adapters/primary/http/dto"
)

const updatePath = "/update_status"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send reports object/sub as alive. The API key travels in the X-API-Key
// header.
func (c *Client) Send(ctx context.Context, object, sub string) error {
	return c.post(ctx, dto.UpdateStatusRequest{ObjectName: object, SubObjectName: sub}, true)
}

// SendLegacy reports a program in the single-table format, where the API key
// is part of the body and also names the sub-object.
func (c *Client) SendLegacy(ctx context.Context, program string) error {
	return c.post(ctx, dto.UpdateStatusRequest{ProgramName: program, APIKey: c.apiKey}, false)
}

func (c *Client) post(ctx context.Context, body dto.UpdateStatusRequest, withHeader bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+updatePath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if withHeader && c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post heartbeat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e dto.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &e) == nil && e.Detail != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Detail)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return nil
}

// Loop calls send right away and then every interval until ctx is done.
// A failed send is logged and the loop carries on.
func Loop(ctx context.Context, interval time.Duration, logger *log.Entry, send func(context.Context) error) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := send(ctx); err != nil {
			logger.WithError(err).Warn("heartbeat failed")
		} else {
			logger.Debug("heartbeat sent")
		}

		select {
		case <-ctx.Done():
			logger.Info("heartbeat stopped")
			return nil
		case <-ticker.C:
		}
	}
}
