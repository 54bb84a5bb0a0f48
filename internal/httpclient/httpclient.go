// Package httpclient provides the outbound HTTP client used by the license
// gate (C4) and the sidecar manager (C6). Grounded on the teacher's
// internal/infra/httpclient.New: a timeout-bounded client built on the
// default transport, rather than a heavier SDK the underlying calls don't
// need.
package httpclient

import (
	"net/http"
	"time"
)

// New returns an *http.Client with the given timeout. A zero or negative
// timeout falls back to 30s, matching the teacher's default.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
