// Package license implements the licence gate (spec §3 License document,
// §4.4): activation against a remote service, encrypted local storage, and
// the concurrency/cadence ceilings the rest of the system queries
// (max_tasks, interval_floor, can_execute_immediately, is_expired).
package license

import (
	"context"
	"errors"
	"time"
)

// Free-mode ceilings (spec §4.4).
const (
	FreeMaxTasks             = 1
	FreeIntervalLimitSeconds = 7200 // 2h
)

var (
	// ErrInvalidLicense is returned by Activate when the remote service
	// reports success=false.
	ErrInvalidLicense = errors.New("license: invalid license code")
	// ErrServiceUnavailable is returned by Activate on network/HTTP failure.
	ErrServiceUnavailable = errors.New("license: service unavailable")
)

// Config is the activation payload's config object (spec §3).
type Config struct {
	TaskNum       int            `json:"task_num"`
	EndTime       time.Time      `json:"end_time"`
	IntervalLimit *int           `json:"interval_limit,omitempty"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// Document is the one process-wide license record (spec §3).
type Document struct {
	ProductID    string    `json:"product_id"`
	LicenseCode  string    `json:"license_code"`
	ActivatedAt  time.Time `json:"activated_at"`
	Config       Config    `json:"config"`
}

// Activator performs the remote activation call. The production
// implementation (RemoteActivator) POSTs to a fixed licence-service
// endpoint; tests substitute a stub.
type Activator interface {
	Activate(ctx context.Context, productID, licenseCode string) (Config, bool, error)
}

// Gate answers the licence questions the scheduler and control-plane API
// consult on every task creation and immediate-execute request (spec §4.4).
type Gate struct {
	store     *Store
	activator Activator
	now       func() time.Time
}

// NewGate constructs a Gate backed by store for persistence and activator
// for the remote activation call.
func NewGate(store *Store, activator Activator) *Gate {
	return &Gate{store: store, activator: activator, now: func() time.Time { return time.Now().UTC() }}
}

// WithNow overrides the clock, for tests.
func (g *Gate) WithNow(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// Activate exchanges licenseCode for a Config via the remote service and
// persists the encrypted result on success.
func (g *Gate) Activate(ctx context.Context, productID, licenseCode string) (Config, error) {
	cfg, ok, err := g.activator.Activate(ctx, productID, licenseCode)
	if err != nil {
		return Config{}, ErrServiceUnavailable
	}
	if !ok {
		return Config{}, ErrInvalidLicense
	}

	doc := Document{
		ProductID:   productID,
		LicenseCode: licenseCode,
		ActivatedAt: g.now(),
		Config:      cfg,
	}
	if err := g.store.Save(doc); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsActivated reports whether a license document has ever been persisted.
func (g *Gate) IsActivated() bool {
	_, err := g.store.Load()
	return err == nil
}

// IsExpired compares the stored config's EndTime against now, in UTC; a
// time with no zone information is treated as already UTC (spec §4.4).
func (g *Gate) IsExpired() bool {
	doc, err := g.store.Load()
	if err != nil {
		return true
	}
	if doc.Config.EndTime.IsZero() {
		return false
	}
	return !g.now().Before(doc.Config.EndTime.UTC())
}

// GetMaxTasks returns config.task_num if activated and not expired, else
// the free-trial ceiling of 1.
func (g *Gate) GetMaxTasks() int {
	doc, err := g.store.Load()
	if err != nil || g.IsExpired() {
		return FreeMaxTasks
	}
	if doc.Config.TaskNum <= 0 {
		return FreeMaxTasks
	}
	return doc.Config.TaskNum
}

// GetIntervalLimit returns 7200 if not activated or expired, else nil
// (no floor imposed once licensed, unless the config itself specifies one).
func (g *Gate) GetIntervalLimit() *int {
	doc, err := g.store.Load()
	if err != nil || g.IsExpired() {
		floor := FreeIntervalLimitSeconds
		return &floor
	}
	return doc.Config.IntervalLimit
}

// CanExecuteImmediately is true only if activated and not expired.
func (g *Gate) CanExecuteImmediately() bool {
	return g.IsActivated() && !g.IsExpired()
}
