package client

import (
	"context"
	"net/http"
)

// User is the identity behind a token.
type User struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	IsOwner  bool   `json:"is_owner"`
}

type tokenBody struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a session carrying the issued token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var out tokenBody
	in := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return Session{}, err
	}
	return c.session.WithToken(out.Token), nil
}

// Register creates an account and returns a session for it.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (Session, error) {
	var out tokenBody
	in := map[string]string{"email": email, "password": password, "full_name": fullName}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return Session{}, err
	}
	return c.session.WithToken(out.Token), nil
}

// Me returns the account of the session's token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
