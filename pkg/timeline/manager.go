// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package timeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/antimetal/timeline-agent/pkg/errors"
)

// Notifier publishes the location of newly registered collectors so that
// writers elsewhere in the cluster can find them.
type Notifier interface {
	Report(ctx context.Context, appID string, address string) error
}

// RestServer is the HTTP surface the manager exposes collectors through.
// Serve returns the bound address once the listener is up.
type RestServer interface {
	Serve() (string, error)
	Shutdown(ctx context.Context) error
}

const shutdownTimeout = 10 * time.Second

type ManagerOption func(*Manager)

func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = n
	}
}

func WithMetricsRegistry(reg *prometheus.Registry) ManagerOption {
	return func(m *Manager) {
		m.metricsReg = reg
	}
}

// Manager is the per-node registry of application collectors. It owns the
// lifecycle of every collector it holds: a collector enters the registry
// already initialized and started, and is stopped when it leaves.
//
// Reads (Get, Has) are lock-free. Registration and removal serialize on a
// single mutex so that at most one collector per application id is ever
// initialized and started.
type Manager struct {
	logger     logr.Logger
	notifier   Notifier
	metricsReg *prometheus.Registry
	metrics    *managerMetrics

	// mu serializes collector registration and removal. It is never held
	// while reporting to the coordinator or while serving reads.
	mu         sync.Mutex
	collectors sync.Map // appID -> Collector

	cfg  CollectionConfig
	rest RestServer

	// bindAddress is written once during Start, before any collector can be
	// registered, and read-only afterwards.
	bindAddress string
}

func NewManager(logger logr.Logger, opts ...ManagerOption) (*Manager, error) {
	if logger.GetSink() == nil {
		return nil, fmt.Errorf("logger is required")
	}
	m := &Manager{
		logger: logger.WithName("timeline-manager"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metricsReg == nil {
		m.metricsReg = prometheus.NewRegistry()
	}
	m.metrics = newManagerMetrics(m.metricsReg)
	return m, nil
}

// SetRestServer wires the HTTP surface the manager starts and stops with.
// It must be called before Start. A nil server is allowed, the manager then
// runs without an HTTP endpoint, which tests rely on.
func (m *Manager) SetRestServer(rest RestServer) {
	m.rest = rest
}

// Init prepares the manager with the collection configuration handed to every
// collector it registers.
func (m *Manager) Init(cfg CollectionConfig) error {
	if cfg.Store == nil {
		return errors.New("manager requires a store")
	}
	cfg.ApplyDefaults()
	m.cfg = cfg
	return nil
}

// Start brings up the HTTP surface and publishes its bound address. It must
// complete before collectors are registered so that every coordinator report
// carries a usable address.
func (m *Manager) Start(ctx context.Context) error {
	if m.rest == nil {
		m.logger.Info("no rest server configured, skipping timeline endpoint")
		return nil
	}
	addr, err := m.rest.Serve()
	if err != nil {
		return fmt.Errorf("failed to start timeline endpoint: %w", err)
	}
	m.bindAddress = addr
	m.logger.Info("timeline endpoint up", "address", addr)
	return nil
}

// BindAddress returns the address of the HTTP surface, or empty if the
// manager was started without one.
func (m *Manager) BindAddress() string {
	return m.bindAddress
}

// PutIfAbsent registers candidate under appID unless a collector for that
// application already exists, and returns whichever collector holds the slot.
//
// When candidate wins, it is initialized and started before becoming visible;
// a candidate that fails either step is discarded and the slot stays empty.
// The coordinator is notified after the slot is filled, outside the
// registration lock. A failed report is returned as an error but does not
// evict the collector; callers that care can retry with ReportCollector.
func (m *Manager) PutIfAbsent(ctx context.Context, appID string, candidate Collector) (Collector, error) {
	if appID == "" {
		return nil, errors.New("application id must not be empty")
	}
	if candidate == nil {
		return nil, errors.New("candidate collector must not be nil")
	}

	winner, isNew, err := m.register(appID, candidate)
	if err != nil {
		return nil, err
	}
	if !isNew {
		m.logger.V(1).Info("collector already exists", "app", appID)
		return winner, nil
	}

	m.metrics.created.Inc()
	m.metrics.active.Inc()
	m.logger.Info("collector registered", "app", appID)

	if err := m.report(ctx, appID); err != nil {
		m.metrics.reportFailures.Inc()
		m.logger.Error(err, "failed to report new collector", "app", appID)
		return winner, fmt.Errorf("collector for %s registered but not reported: %w", appID, err)
	}
	return winner, nil
}

func (m *Manager) register(appID string, candidate Collector) (Collector, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.collectors.Load(appID); ok {
		return existing.(Collector), false, nil
	}
	if err := candidate.Init(m.cfg); err != nil {
		return nil, false, fmt.Errorf("failed to init collector for %s: %w", appID, err)
	}
	if err := candidate.Start(); err != nil {
		return nil, false, fmt.Errorf("failed to start collector for %s: %w", appID, err)
	}
	m.collectors.Store(appID, candidate)
	return candidate, true, nil
}

// ReportCollector re-reports the collector registered under appID to the
// coordinator. It is the recovery path for a PutIfAbsent whose report failed.
func (m *Manager) ReportCollector(ctx context.Context, appID string) error {
	if _, ok := m.collectors.Load(appID); !ok {
		return fmt.Errorf("no collector registered for %s", appID)
	}
	if err := m.report(ctx, appID); err != nil {
		m.metrics.reportFailures.Inc()
		return err
	}
	return nil
}

func (m *Manager) report(ctx context.Context, appID string) error {
	if m.notifier == nil {
		return nil
	}
	return m.notifier.Report(ctx, appID, m.bindAddress)
}

// Get returns the collector registered under appID, or nil.
func (m *Manager) Get(appID string) Collector {
	if c, ok := m.collectors.Load(appID); ok {
		return c.(Collector)
	}
	return nil
}

// Has reports whether a collector is registered under appID.
func (m *Manager) Has(appID string) bool {
	_, ok := m.collectors.Load(appID)
	return ok
}

// Remove evicts and stops the collector registered under appID, then deletes
// the application's stored entities so a later registration starts clean. It
// returns false if no collector was registered. Stop and delete failures are
// logged, the slot is freed either way.
func (m *Manager) Remove(appID string) bool {
	m.mu.Lock()
	v, ok := m.collectors.LoadAndDelete(appID)
	m.mu.Unlock()

	if !ok {
		m.logger.Error(nil, "no collector to remove", "app", appID)
		return false
	}
	m.metrics.removed.Inc()
	m.metrics.active.Dec()
	if err := v.(Collector).Stop(); err != nil {
		m.logger.Error(err, "failed to stop removed collector", "app", appID)
	}
	// Delete after Stop so the collector's final drain is not raced.
	if m.cfg.Store != nil {
		if err := m.cfg.Store.DeleteApp(appID); err != nil {
			m.logger.Error(err, "failed to delete entities of removed app", "app", appID)
		}
	}
	m.logger.Info("collector removed", "app", appID)
	return true
}

// Stop shuts down the HTTP surface and then stops every remaining collector.
// It returns the combined errors but always runs to completion.
func (m *Manager) Stop() error {
	var errs []error

	if m.rest != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := m.rest.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop timeline endpoint: %w", err))
		}
	}

	m.mu.Lock()
	var remaining []Collector
	m.collectors.Range(func(key, value any) bool {
		m.collectors.Delete(key)
		remaining = append(remaining, value.(Collector))
		return true
	})
	m.mu.Unlock()

	for _, c := range remaining {
		m.metrics.removed.Inc()
		m.metrics.active.Dec()
		if err := c.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop collector for %s: %w", c.AppID(), err))
		}
	}
	m.logger.Info("manager stopped", "collectors", len(remaining))
	return errors.Join(errs...)
}
