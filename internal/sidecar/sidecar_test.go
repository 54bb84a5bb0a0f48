package sidecar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManagerAgainst(t *testing.T, srv *httptest.Server) *Manager {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return New(u.Hostname(), port, t.TempDir(), t.TempDir(), nil)
}

func TestIsRunningTrueWhenHealthEndpointReturnsOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newManagerAgainst(t, srv)
	assert.True(t, m.IsRunning(context.Background()))
}

func TestIsRunningFalseWhenHealthEndpointReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := newManagerAgainst(t, srv)
	assert.False(t, m.IsRunning(context.Background()))
}

func TestIsRunningFalseWhenNothingListening(t *testing.T) {
	m := New("127.0.0.1", 1, t.TempDir(), t.TempDir(), nil)
	assert.False(t, m.IsRunning(context.Background()))
}

func TestStartReturnsErrStartFailedForUnknownBinaryKey(t *testing.T) {
	m := New("127.0.0.1", 9999, t.TempDir(), t.TempDir(), nil)
	m.BinaryTable = map[binaryKey]string{}

	err := m.Start(context.Background(), "unknown-platform", true)
	assert.ErrorIs(t, err, ErrStartFailed)
}

func TestEnsureRunningSkipsStartWhenAlreadyUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := newManagerAgainst(t, srv)
	m.BinaryTable = map[binaryKey]string{}

	require.NoError(t, m.EnsureRunning(context.Background(), "xhs", true))
}
