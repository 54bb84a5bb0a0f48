// Package amctl implements the operator CLI's HTTP client and command
// tree (C14). The CLI never touches the stores directly — every operation
// goes through the control-plane API (internal/httpapi), the same surface
// a desktop UI would use. Grounded on the teacher's internal/infra/httpclient
// constructor convention.
package amctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/psdyuan2/AiMediaOps/internal/httpclient"
)

// APIClient talks to an orchestrator-server's control-plane API.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient returns an APIClient targeting baseURL (e.g.
// http://127.0.0.1:8787).
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{baseURL: baseURL, http: httpclient.New(0)}
}

// apiError carries the error_code/error shape httpapi/errors.go writes, so
// callers can print the server's message instead of a generic status line.
type apiError struct {
	status int
	body   map[string]any
}

func (e *apiError) Error() string {
	if msg, ok := e.body["error"].(string); ok && msg != "" {
		return msg
	}
	return fmt.Sprintf("request failed with status %d", e.status)
}

func (c *APIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("amctl: marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("amctl: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("amctl: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("amctl: read response from %s: %w", path, err)
	}

	if resp.StatusCode >= 400 {
		var parsed map[string]any
		_ = json.Unmarshal(data, &parsed)
		return &apiError{status: resp.StatusCode, body: parsed}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("amctl: decode response from %s: %w", path, err)
	}
	return nil
}

func (c *APIClient) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *APIClient) post(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *APIClient) patch(ctx context.Context, path string, body any, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

func (c *APIClient) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}
