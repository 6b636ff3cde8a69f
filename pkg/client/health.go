package client

import (
	"context"
	"net/http"
)

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status string `json:"status"`
}

// Health checks the health of the server
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/healthz", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Ping is a simple connectivity test
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}
