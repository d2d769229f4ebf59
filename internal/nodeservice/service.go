package nodeservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"

	"github.com/antimetal/timeline-agent/pkg/errors"
	"github.com/antimetal/timeline-agent/pkg/timeline"
)

const (
	// DefaultRemovalLinger is how long a collector stays registered after
	// its application's lead container stops, so that late writers can still
	// flush their final entities.
	DefaultRemovalLinger = 1 * time.Second

	reportMaxTries = 5
)

// Registry is the slice of the collector manager the node service drives.
type Registry interface {
	PutIfAbsent(ctx context.Context, appID string, candidate timeline.Collector) (timeline.Collector, error)
	ReportCollector(ctx context.Context, appID string) error
	Remove(appID string) bool
	Has(appID string) bool
}

type Options struct {
	Logger   logr.Logger
	Registry Registry

	// Linger delays collector removal after the lead container stops.
	// Zero removes immediately; negative means DefaultRemovalLinger.
	Linger time.Duration
}

// Service translates container lifecycle events on this node into collector
// registrations and removals. Only an application's lead container triggers
// either, containers beyond the first are tracked by the scheduler but carry
// no collector responsibility.
type Service struct {
	logger   logr.Logger
	registry Registry
	linger   time.Duration

	// newCollector builds the candidate handed to the registry.
	newCollector func(appID string) timeline.Collector

	mu       sync.Mutex
	removals map[string]*time.Timer
	stopped  bool
}

func New(opts Options) (*Service, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.Logger.GetSink() == nil {
		return nil, errors.New("logger is required")
	}
	linger := opts.Linger
	if linger < 0 {
		linger = DefaultRemovalLinger
	}
	logger := opts.Logger.WithName("node-service")
	return &Service{
		logger:   logger,
		registry: opts.Registry,
		linger:   linger,
		newCollector: func(appID string) timeline.Collector {
			return timeline.NewAppCollector(appID, logger)
		},
		removals: make(map[string]*time.Timer),
	}, nil
}

// InitializeContainer records that a container started on this node. The
// lead container registers a collector for its application; any pending
// removal for that application is cancelled first.
func (s *Service) InitializeContainer(ctx context.Context, id ContainerID) error {
	if !id.Lead() {
		s.logger.V(1).Info("ignoring non-lead container", "container", id.String())
		return nil
	}

	s.cancelRemoval(id.App)

	_, err := s.registry.PutIfAbsent(ctx, id.App, s.newCollector(id.App))
	if err == nil {
		return nil
	}
	if !errors.Retryable(err) {
		return fmt.Errorf("failed to register collector for %s: %w", id.App, err)
	}

	// The collector is registered but the coordinator does not know about
	// it yet. Retry the report; registration itself is done.
	s.logger.Info("retrying coordinator report", "app", id.App)
	_, rerr := backoff.Retry(ctx, func() (struct{}, error) {
		err := s.registry.ReportCollector(ctx, id.App)
		if err != nil && !errors.Retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(reportMaxTries),
	)
	if rerr != nil {
		return fmt.Errorf("collector for %s registered but report keeps failing: %w", id.App, rerr)
	}
	return nil
}

// StopContainer records that a container stopped. When the lead container
// stops, the application's collector is removed after the configured linger.
func (s *Service) StopContainer(id ContainerID) {
	if !id.Lead() {
		s.logger.V(1).Info("ignoring non-lead container", "container", id.String())
		return
	}

	if s.linger == 0 {
		s.registry.Remove(id.App)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.removals[id.App]; ok {
		t.Stop()
	}
	app := id.App
	s.removals[app] = time.AfterFunc(s.linger, func() {
		s.mu.Lock()
		delete(s.removals, app)
		s.mu.Unlock()
		s.registry.Remove(app)
	})
	s.logger.Info("collector removal scheduled", "app", app, "linger", s.linger)
}

// HasApplication reports whether the application has a registered collector.
func (s *Service) HasApplication(appID string) bool {
	return s.registry.Has(appID)
}

// Stop cancels pending removals. Collectors still registered are left for
// the manager to stop.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for app, t := range s.removals {
		t.Stop()
		delete(s.removals, app)
	}
}

func (s *Service) cancelRemoval(appID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.removals[appID]; ok {
		t.Stop()
		delete(s.removals, appID)
	}
}
