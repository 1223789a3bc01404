// Package client is a typed HTTP and WebSocket client for the booking API.
// Credentials travel in an explicit Session instead of ambient state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Session holds where the API lives and who is calling it.
type Session struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token      string
	HTTPClient *http.Client
}

// WithToken returns a copy of the session carrying token.
func (s Session) WithToken(token string) Session {
	s.Token = token
	return s
}

// Client issues requests on behalf of a Session.
type Client struct {
	session    Session
	httpClient *http.Client
}

// New creates a client for the session. A nil HTTPClient gets a default
// client with a short timeout.
func New(session Session) *Client {
	httpClient := session.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	session.BaseURL = strings.TrimRight(session.BaseURL, "/")
	return &Client{session: session, httpClient: httpClient}
}

// Session returns the session the client was created with.
func (c *Client) Session() Session {
	return c.session
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error (status %d): %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Code)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type listBody[T any] struct {
	Data []T `json:"data"`
}

// doJSON sends in as the JSON body (when non-nil) and decodes the response
// into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// do performs the request and converts non-2xx responses into *APIError.
// The caller closes the body of a successful response.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.session.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var eb errorBody
		if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
			apiErr.Code = eb.Error
			apiErr.Message = eb.Message
		} else if len(data) > 0 {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}

	return resp, nil
}
