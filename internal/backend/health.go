package backend

import (
	"context"
	"net/http"
)

// HealthResponse reports backend liveness.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Health checks whether the backend is up.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/health/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping reports reachability as a bare boolean.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}
