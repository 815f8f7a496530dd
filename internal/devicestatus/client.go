// Package devicestatus talks to the scanner-device monitoring service.
package devicestatus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the device status collaborator.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with a short timeout; the dashboard polls it.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Status fetches the collaborator's device report. The JSON object is passed
// through untouched so new device fields need no change here.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	if c.Skip {
		return map[string]any{
			"laptop":    "online",
			"iphone":    "offline",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/device-status", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("device service error %s: %s", resp.Status, string(body))
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// Health checks if the device service is reachable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.Status(ctx)
	return err
}
