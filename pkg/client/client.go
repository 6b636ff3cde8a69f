package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to an ec2auto invoke server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // Server base URL (e.g., "http://127.0.0.1:9000")
	Timeout    time.Duration // HTTP client timeout (default: 60s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new invoke server client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// envelope is the union of the server's success, error and invoke bodies
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      *APIError       `json:"error,omitempty"`
	StatusCode int             `json:"statusCode"`
	Body       string          `json:"body"`
}

// send performs an HTTP request and decodes the envelope. Server side
// failures (unknown handler, rate limit, bad configuration) come back as
// *APIError.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (*envelope, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, string(respBody))
	}

	if env.Error != nil {
		env.Error.StatusCode = resp.StatusCode
		return nil, env.Error
	}

	return &env, nil
}

// doRequest performs a request whose success body wraps data
func (c *Client) doRequest(ctx context.Context, method, path string, result interface{}) error {
	env, err := c.send(ctx, method, path, nil)
	if err != nil {
		return err
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}
