// Package apiclient calls the ledger's HTTP API on behalf of operator tools.
package apiclient

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

// Client talks to a running API server.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// New creates a client. token may be empty until Login is called.
func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// Login exchanges a username/email pair for a session token and keeps it on
// the client.
func (c *Client) Login(ctx context.Context, username, email string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.post(ctx, "/api/login", map[string]string{"username": username, "email": email}, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("login: empty token")
	}
	c.Token = out.Token
	return out.Token, nil
}

// IssueQR binds qrData to the (username, email) pair.
func (c *Client) IssueQR(ctx context.Context, username, email, qrData string) error {
	if c.Token == "" {
		return fmt.Errorf("issue qr: no session token")
	}
	return c.post(ctx, "/api/generate-qr", map[string]string{
		"username": username,
		"email":    email,
		"qr_data":  qrData,
	}, nil)
}

// Contact is one entry of the user directory.
type Contact struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// UserEmails lists every registered username with its email.
func (c *Client) UserEmails(ctx context.Context) ([]Contact, error) {
	var out []Contact
	if err := c.do(ctx, http.MethodGet, "/api/user-emails", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", path, err)
	}
	return nil
}

// StatusError is a non-2xx API response.
type StatusError struct {
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Path, e.Status, e.Message)
}

func decodeError(path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &StatusError{Path: path, Status: resp.StatusCode, Message: msg}
}
