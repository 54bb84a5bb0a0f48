// Package sidecarclient implements the HTTP client the runner and the
// control-plane login endpoints use to talk to the browser-automation
// sidecar (spec §1 Non-goals: the sidecar's wire protocol is out of scope
// for this repo, consumed only through this narrow interface).
// Grounded on the teacher's internal/infra/httpclient.New(timeout, logger)
// constructor convention.
package sidecarclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/psdyuan2/AiMediaOps/internal/httpclient"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
	"github.com/psdyuan2/AiMediaOps/internal/runner"
)

// Client satisfies both runner.SidecarClient (the run-time actions) and
// httpapi.LoginClient (the control-plane login flow), since both talk to
// the same sidecar HTTP surface over the same baseURL.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// New returns a Client targeting the sidecar at baseURL (e.g.
// http://127.0.0.1:9234).
func New(baseURL string, logger logging.Logger) *Client {
	return &Client{baseURL: baseURL, http: httpclient.New(0), logger: logging.OrNop(logger)}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sidecarclient: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("sidecarclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sidecarclient: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sidecarclient: %s returned %d: %s", path, resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sidecarclient: decode response from %s: %w", path, err)
	}
	return nil
}

// CheckLogin implements runner.SidecarClient.
func (c *Client) CheckLogin(ctx context.Context, accountID string) (bool, error) {
	var out struct {
		LoggedIn bool `json:"logged_in"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/login", nil, &out); err != nil {
		return false, err
	}
	return out.LoggedIn, nil
}

// Publish implements runner.SidecarClient.
func (c *Client) Publish(ctx context.Context, accountID string, content runner.Content) error {
	return c.do(ctx, http.MethodPost, "/accounts/"+accountID+"/publish", content, nil)
}

// Interact implements runner.SidecarClient.
func (c *Client) Interact(ctx context.Context, accountID string, noteCount int) error {
	body := struct {
		NoteCount int `json:"note_count"`
	}{NoteCount: noteCount}
	return c.do(ctx, http.MethodPost, "/accounts/"+accountID+"/interact", body, nil)
}

// QRCode implements httpapi.LoginClient.
func (c *Client) QRCode(ctx context.Context, accountID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/accounts/"+accountID+"/login/qrcode", nil)
	if err != nil {
		return nil, fmt.Errorf("sidecarclient: build qrcode request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sidecarclient: qrcode request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sidecarclient: qrcode returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// LoginState implements httpapi.LoginClient.
func (c *Client) LoginState(ctx context.Context, accountID string) (string, error) {
	var out struct {
		State string `json:"state"`
	}
	if err := c.do(ctx, http.MethodGet, "/accounts/"+accountID+"/login/status", nil, &out); err != nil {
		return "", err
	}
	return out.State, nil
}

// ConfirmLogin implements httpapi.LoginClient.
func (c *Client) ConfirmLogin(ctx context.Context, accountID string) error {
	return c.do(ctx, http.MethodPost, "/accounts/"+accountID+"/login/confirm", nil, nil)
}
