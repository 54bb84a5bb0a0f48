package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoFileOrEnv(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.HTTP.ListenAddr)
	assert.Equal(t, "127.0.0.1", cfg.Sidecar.Host)
	assert.Equal(t, 9234, cfg.Sidecar.Port)
	assert.Equal(t, 15*time.Second, cfg.Sidecar.ReadinessWait)
	assert.Equal(t, 1000, cfg.Logs.MaxEntries)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)
}

func TestLoadPrefersConfigFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := "http:\n  listen_addr: \":9999\"\nlogs:\n  level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.HTTP.ListenAddr)
	assert.Equal(t, "debug", cfg.Logs.Level)
}

func TestLoadPrefersEnvOverConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "http:\n  listen_addr: \":9999\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))
	t.Setenv("AMOPS_HTTP_LISTEN_ADDR", ":7000")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTP.ListenAddr)
}

func TestLoadOverridesDataDirWithHint(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
}
