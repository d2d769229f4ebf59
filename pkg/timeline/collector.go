// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package timeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	timelinev1 "github.com/antimetal/timeline-agent/pkg/api/timeline/v1"
	"github.com/antimetal/timeline-agent/pkg/errors"
)

var (
	// ErrNotStarted is returned by data-plane operations on a collector that
	// has not been started yet or has already been stopped.
	ErrNotStarted = errors.New("collector not started")

	// ErrBufferFull is returned by Put when the collector's write buffer is
	// at capacity.
	ErrBufferFull = errors.New("collector write buffer full")
)

// CollectorState tracks a collector through its lifecycle.
// Stopped is terminal: a stopped collector is never restarted, the manager
// registers a fresh instance instead.
type CollectorState int32

const (
	CollectorStateUninitialized CollectorState = iota
	CollectorStateInitialized
	CollectorStateStarted
	CollectorStateStopped
)

func (s CollectorState) String() string {
	switch s {
	case CollectorStateUninitialized:
		return "uninitialized"
	case CollectorStateInitialized:
		return "initialized"
	case CollectorStateStarted:
		return "started"
	case CollectorStateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Collector is a per-application unit that ingests and holds timeline data.
// The manager owns every registered collector and drives its lifecycle:
// Init and Start are called exactly once, in that order, under the manager's
// registration lock; Stop is called exactly once on removal or manager
// shutdown.
type Collector interface {
	AppID() string
	Init(cfg CollectionConfig) error
	Start() error
	Stop() error

	// Put ingests entities. It returns ErrNotStarted outside the started
	// state and ErrBufferFull when the collector cannot accept more data.
	Put(entities ...*timelinev1.TimelineEntity) error

	// Entities returns the entities stored for this application, optionally
	// restricted to entityType. Empty entityType matches all.
	Entities(entityType string) ([]*timelinev1.TimelineEntity, error)
}

// Compile-time interface check
var _ Collector = (*AppCollector)(nil)

// AppCollector buffers ingested entities on a channel and flushes them to the
// shared entity store from a dedicated goroutine, so callers on the ingest
// path never wait on storage.
type AppCollector struct {
	appID  string
	logger logr.Logger

	mu    sync.Mutex
	state CollectorState
	cfg   CollectionConfig

	entries chan []*timelinev1.TimelineEntity
	stop    chan struct{}
	done    chan struct{}

	errMu   sync.Mutex
	lastErr error
}

func NewAppCollector(appID string, logger logr.Logger) *AppCollector {
	return &AppCollector{
		appID:  appID,
		logger: logger.WithName("collector").WithValues("app", appID),
		state:  CollectorStateUninitialized,
	}
}

func (c *AppCollector) AppID() string {
	return c.appID
}

func (c *AppCollector) State() CollectorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *AppCollector) Init(cfg CollectionConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != CollectorStateUninitialized {
		return fmt.Errorf("cannot init collector in state %s", c.state)
	}
	if cfg.Store == nil {
		return errors.New("collector requires a store")
	}
	cfg.ApplyDefaults()

	c.cfg = cfg
	c.entries = make(chan []*timelinev1.TimelineEntity, cfg.BufferSize)
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.state = CollectorStateInitialized
	return nil
}

func (c *AppCollector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != CollectorStateInitialized {
		return fmt.Errorf("cannot start collector in state %s", c.state)
	}
	go c.flushLoop()
	c.state = CollectorStateStarted
	return nil
}

// Stop drains outstanding writes and terminates the flush goroutine. It
// waits at most FlushTimeout for the drain to complete. Stop is terminal and
// idempotent.
func (c *AppCollector) Stop() error {
	c.mu.Lock()
	prev := c.state
	c.state = CollectorStateStopped
	c.mu.Unlock()

	if prev != CollectorStateStarted {
		return nil
	}
	close(c.stop)

	select {
	case <-c.done:
	case <-time.After(c.cfg.FlushTimeout):
		return fmt.Errorf("collector for %s did not drain within %s", c.appID, c.cfg.FlushTimeout)
	}
	return c.LastError()
}

func (c *AppCollector) Put(entities ...*timelinev1.TimelineEntity) error {
	if len(entities) == 0 {
		return nil
	}

	// Enqueue under the lock: Stop flips the state under the same lock, so
	// every accepted batch is in the channel before the drain begins.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CollectorStateStarted {
		return ErrNotStarted
	}
	// Copies so callers may reuse their slices and messages after Put
	// returns.
	batch := make([]*timelinev1.TimelineEntity, 0, len(entities))
	for _, e := range entities {
		batch = append(batch, e.DeepCopy())
	}
	select {
	case c.entries <- batch:
		return nil
	default:
		return ErrBufferFull
	}
}

func (c *AppCollector) Entities(entityType string) ([]*timelinev1.TimelineEntity, error) {
	c.mu.Lock()
	if c.state == CollectorStateUninitialized {
		c.mu.Unlock()
		return nil, fmt.Errorf("collector for %s is not initialized", c.appID)
	}
	st := c.cfg.Store
	c.mu.Unlock()

	return st.Query(c.appID, entityType)
}

// LastError reports the most recent flush failure, if any.
func (c *AppCollector) LastError() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.lastErr
}

func (c *AppCollector) flushLoop() {
	defer close(c.done)
	for {
		select {
		case batch := <-c.entries:
			c.flush(batch)
		case <-c.stop:
			// Drain whatever was buffered before the stop signal.
			for {
				select {
				case batch := <-c.entries:
					c.flush(batch)
				default:
					return
				}
			}
		}
	}
}

func (c *AppCollector) flush(batch []*timelinev1.TimelineEntity) {
	if err := c.cfg.Store.Put(c.appID, batch...); err != nil {
		c.errMu.Lock()
		c.lastErr = err
		c.errMu.Unlock()
		c.logger.Error(err, "failed to flush entities", "count", len(batch))
	}
}
