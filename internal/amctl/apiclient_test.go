package amctl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDecodesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/health", r.URL.Path)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	var out struct {
		Status string `json:"status"`
	}
	require.NoError(t, c.get(context.Background(), "/api/v1/health", &out))
	assert.Equal(t, "ok", out.Status)
}

func TestDoReturnsAPIErrorWithServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"success":false,"error":"task limit reached","error_code":"TASK_LIMIT_REACHED"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	err := c.post(context.Background(), "/api/v1/tasks", map[string]any{}, nil)
	require.Error(t, err)
	assert.Equal(t, "task limit reached", err.Error())
}

func TestPostSendsJSONBody(t *testing.T) {
	var decoded map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&decoded)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	require.NoError(t, c.post(context.Background(), "/api/v1/tasks/t1/reorder", map[string]any{"priority_offset": 60}, nil))
	assert.EqualValues(t, 60, decoded["priority_offset"])
}

func TestDeleteIssuesDeleteMethod(t *testing.T) {
	var method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL)
	require.NoError(t, c.delete(context.Background(), "/api/v1/tasks/t1"))
	assert.Equal(t, http.MethodDelete, method)
}
