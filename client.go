package fetchcascade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client is a thin HTTP client for a remote fetchcascade server's
// internal/transport/chi façade.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
}

// New creates a Client. WithBaseURL is required.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.baseURL == "" {
		return nil, errors.New("fetchcascade: base URL required (use WithBaseURL)")
	}

	return &Client{
		baseURL:    cfg.baseURL,
		apiKey:     cfg.apiKey,
		httpClient: cfg.httpClient,
		timeout:    cfg.timeout,
	}, nil
}

// Ping checks the remote server's health endpoint. Unlike do's other
// callers, /health reports its status via HTTP 200/503 AND a body — so
// Ping decodes the body regardless of status code rather than treating a
// 503 as an API error envelope (the two responses have different shapes).
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("fetchcascade: ping: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetchcascade: ping: %w", err)
	}
	defer resp.Body.Close()

	var body healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("fetchcascade: ping: decode response: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("fetchcascade: server reports status %q (checks: %v)", body.Status, body.Checks)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
