package backend

import (
	"context"
	"net/http"
)

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AdminUser describes the authenticated staff account.
type AdminUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResponse is a successful login: the bearer token plus the account.
type LoginResponse struct {
	Token string    `json:"token"`
	User  AdminUser `json:"user"`
}

// Login authenticates a staff account and stores the returned token for all
// subsequent requests.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/admin/login/", req, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.tokens.Set(resp.Token)
	}
	return &resp, nil
}

// Logout ends the admin session. The stored token is cleared even when the
// request itself fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/admin/logout/", nil, nil)
	c.tokens.Clear()
	return err
}
