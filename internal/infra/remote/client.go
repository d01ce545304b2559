// Package remote is the minimal HTTP client for the now-playing service.
// Token acquisition and refresh are the owning shell's problem; this
// client just POSTs JSON with whatever bearer token it was given.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/decklive/decklive-bridge/internal/infra/delivery"
)

const requestTimeout = 10 * time.Second

// Client implements delivery.Sender over HTTP.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewClient creates a client posting to endpoint. token may be empty
// for unauthenticated test servers.
func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// NowPlaying posts a track payload.
func (c *Client) NowPlaying(ctx context.Context, p delivery.NowPlayingPayload) error {
	return c.post(ctx, p)
}

// Status posts a connection status payload.
func (c *Client) Status(ctx context.Context, p delivery.StatusPayload) error {
	return c.post(ctx, p)
}

func (c *Client) post(ctx context.Context, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach now-playing service: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("now-playing service returned %s", resp.Status)
	}
	return nil
}
