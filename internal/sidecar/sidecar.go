// Package sidecar implements the sidecar manager (C6): probing a local
// browser-automation sidecar over HTTP, and launching the
// platform-appropriate binary in the background when it isn't already
// running (spec §4.6).
package sidecar

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/psdyuan2/AiMediaOps/internal/httpclient"
	"github.com/psdyuan2/AiMediaOps/internal/logging"
)

// ErrStartFailed is returned by Start/EnsureRunning when the sidecar could
// not be brought up within the readiness deadline.
var ErrStartFailed = errors.New("sidecar: failed to start")

// binaryKey identifies one row of the (os, arch, sys_type) -> binary table.
type binaryKey struct {
	OS      string
	Arch    string
	SysType string
}

// Manager probes and, if needed, launches the sidecar process.
type Manager struct {
	Host          string
	Port          int
	HealthPath    string // probed with a minimal GET, 200 means alive
	BinDir        string // directory containing platform sidecar binaries
	WorkDir       string // sidecar's own working directory (spec §4.6)
	BinaryTable   map[binaryKey]string
	ReadinessWait time.Duration // default 3s, per spec §4.6

	client *http.Client
	logger logging.Logger
}

// New returns a Manager using the default sidecar binary table for the
// platforms AiMediaOps ships for.
func New(host string, port int, binDir, workDir string, logger logging.Logger) *Manager {
	return &Manager{
		Host:          host,
		Port:          port,
		HealthPath:    "/health",
		BinDir:        binDir,
		WorkDir:       workDir,
		BinaryTable:   defaultBinaryTable(),
		ReadinessWait: 3 * time.Second,
		client:        httpclient.New(5 * time.Second),
		logger:        logging.OrNop(logger),
	}
}

func defaultBinaryTable() map[binaryKey]string {
	return map[binaryKey]string{
		{OS: "linux", Arch: "amd64", SysType: "xhs"}:   "xhs-sidecar-linux-amd64",
		{OS: "linux", Arch: "arm64", SysType: "xhs"}:   "xhs-sidecar-linux-arm64",
		{OS: "darwin", Arch: "amd64", SysType: "xhs"}:  "xhs-sidecar-darwin-amd64",
		{OS: "darwin", Arch: "arm64", SysType: "xhs"}:  "xhs-sidecar-darwin-arm64",
		{OS: "windows", Arch: "amd64", SysType: "xhs"}: "xhs-sidecar-windows-amd64.exe",
	}
}

// IsRunning reports whether the sidecar is reachable: it first opens a TCP
// connection to Host:Port and, only if that succeeds, probes HealthPath and
// accepts a 200 response as "alive" (spec §4.6).
func (m *Manager) IsRunning(ctx context.Context) bool {
	addr := net.JoinHostPort(m.Host, portString(m.Port))
	conn, err := net.DialTimeout("tcp", addr, 1*time.Second)
	if err != nil {
		return false
	}
	_ = conn.Close()

	url := fmt.Sprintf("http://%s%s", addr, m.HealthPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Start resolves the binary for (runtime.GOOS, runtime.GOARCH, sysType),
// marks it executable, and spawns it detached with WorkDir as its working
// directory so it finds its sibling files (spec §4.6).
func (m *Manager) Start(ctx context.Context, sysType string, headless bool) error {
	key := binaryKey{OS: runtime.GOOS, Arch: runtime.GOARCH, SysType: sysType}
	name, ok := m.BinaryTable[key]
	if !ok {
		return fmt.Errorf("%w: no sidecar binary for os=%s arch=%s sys_type=%s", ErrStartFailed, key.OS, key.Arch, key.SysType)
	}

	path := name
	if m.BinDir != "" {
		path = m.BinDir + string(os.PathSeparator) + name
	}
	if err := os.Chmod(path, 0o755); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrStartFailed, path, err)
	}

	args := []string{"--host", m.Host, "--port", portString(m.Port)}
	if headless {
		args = append(args, "--headless")
	}
	cmd := exec.CommandContext(context.Background(), path, args...)
	cmd.Dir = m.WorkDir
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrStartFailed, err)
	}
	m.logger.Info("sidecar: started pid=%d binary=%s", cmd.Process.Pid, name)

	deadline := time.Now().Add(m.ReadinessWait)
	for time.Now().Before(deadline) {
		if m.IsRunning(ctx) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if m.IsRunning(ctx) {
		return nil
	}
	return fmt.Errorf("%w: not ready after %s", ErrStartFailed, m.ReadinessWait)
}

// EnsureRunning probes first and only starts the sidecar if it isn't
// already up (spec §4.6).
func (m *Manager) EnsureRunning(ctx context.Context, sysType string, headless bool) error {
	if m.IsRunning(ctx) {
		return nil
	}
	return m.Start(ctx, sysType, headless)
}

func portString(p int) string {
	return fmt.Sprintf("%d", p)
}
