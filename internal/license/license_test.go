package license

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivator struct {
	cfg Config
	ok  bool
	err error
}

func (f fakeActivator) Activate(ctx context.Context, productID, licenseCode string) (Config, bool, error) {
	return f.cfg, f.ok, f.err
}

func newTestGate(t *testing.T, activator Activator) *Gate {
	t.Helper()
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "license.enc"), filepath.Join(dir, "license.key"), "")
	return NewGate(store, activator)
}

func TestUnactivatedGateReportsFreeTierCeilings(t *testing.T) {
	g := newTestGate(t, fakeActivator{})
	assert.False(t, g.IsActivated())
	assert.Equal(t, FreeMaxTasks, g.GetMaxTasks())
	require.NotNil(t, g.GetIntervalLimit())
	assert.Equal(t, FreeIntervalLimitSeconds, *g.GetIntervalLimit())
	assert.False(t, g.CanExecuteImmediately())
}

func TestActivateWithValidCodePersistsAndLifts(t *testing.T) {
	end := time.Now().UTC().Add(365 * 24 * time.Hour)
	g := newTestGate(t, fakeActivator{ok: true, cfg: Config{TaskNum: 50, EndTime: end}})

	cfg, err := g.Activate(context.Background(), "amediaops", "valid-code")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.TaskNum)

	assert.True(t, g.IsActivated())
	assert.False(t, g.IsExpired())
	assert.Equal(t, 50, g.GetMaxTasks())
	assert.True(t, g.CanExecuteImmediately())
}

func TestActivateWithInvalidCodeReturnsErrInvalidLicense(t *testing.T) {
	g := newTestGate(t, fakeActivator{ok: false})
	_, err := g.Activate(context.Background(), "amediaops", "bad-code")
	assert.ErrorIs(t, err, ErrInvalidLicense)
	assert.False(t, g.IsActivated())
}

func TestActivateServiceFailureReturnsErrServiceUnavailable(t *testing.T) {
	g := newTestGate(t, fakeActivator{err: assert.AnError})
	_, err := g.Activate(context.Background(), "amediaops", "any-code")
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestExpiredLicenseFallsBackToFreeTier(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	g := newTestGate(t, fakeActivator{ok: true, cfg: Config{TaskNum: 50, EndTime: past}})

	_, err := g.Activate(context.Background(), "amediaops", "valid-code")
	require.NoError(t, err)

	assert.True(t, g.IsExpired())
	assert.Equal(t, FreeMaxTasks, g.GetMaxTasks())
	assert.False(t, g.CanExecuteImmediately())
}

func TestStoreSaveLoadRoundTripsEncrypted(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "license.enc"), filepath.Join(dir, "license.key"), "")

	doc := Document{ProductID: "amediaops", LicenseCode: "abc", Config: Config{TaskNum: 10}}
	require.NoError(t, store.Save(doc))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, doc.ProductID, loaded.ProductID)
	assert.Equal(t, doc.Config.TaskNum, loaded.Config.TaskNum)
}
