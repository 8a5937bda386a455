package engine

import (
	"sync"

	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/document"
	"github.com/wippyai/shard-runtime/errors"
	"github.com/wippyai/shard-runtime/resource"
)

// Option configures a ViewManager.
type Option func(*ViewManager)

// WithLogger sets the manager's logger. The package logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(m *ViewManager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithKinds rejects documents containing node kinds outside kinds before any
// view is created.
func WithKinds(kinds ...string) Option {
	return func(m *ViewManager) {
		m.parseOpts = append(m.parseOpts, document.WithKinds(kinds...))
	}
}

// WithMaxDepth bounds document nesting.
func WithMaxDepth(n int) Option {
	return func(m *ViewManager) {
		m.parseOpts = append(m.parseOpts, document.WithMaxDepth(n))
	}
}

// Stats summarizes a manager's activity.
type Stats struct {
	Renders       int
	FailedRenders int
	ViewsCreated  int
	ViewsReleased int
	LiveViews     int
	LiveRoots     int
}

// ViewManager owns a host view factory and builds Roots from documents.
// A manager must outlive its Roots: Close reports KindInUse while any Root
// is alive, and the manager finishes closing when the last one is freed.
type ViewManager struct {
	factory   shardruntime.ViewFactory
	log       *zap.Logger
	counter   *resource.Counter
	parseOpts []document.Option

	mu       sync.Mutex
	live     int
	renders  int
	failures int
	closing  bool
	closed   bool
}

// NewViewManager registers factory as the view creation capability.
func NewViewManager(factory shardruntime.ViewFactory, opts ...Option) *ViewManager {
	m := &ViewManager{
		factory: factory,
		log:     Logger(),
		counter: resource.NewCounter(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Close stops the manager from rendering. While Roots built by it are alive
// it returns a KindInUse error and completes once the last Root is freed.
// Closing a closed manager is a no-op.
func (m *ViewManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closing = true
	if m.live > 0 {
		m.log.Warn("view manager closed with live roots", zap.Int("roots", m.live))
		return errors.ManagerInUse(m.live)
	}
	m.closed = true
	m.log.Debug("view manager closed")
	return nil
}

// Closed reports whether the manager has finished closing.
func (m *ViewManager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// LiveRoots returns the number of Roots not yet freed.
func (m *ViewManager) LiveRoots() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// Stats returns a snapshot of the manager's counters.
func (m *ViewManager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Renders:       m.renders,
		FailedRenders: m.failures,
		ViewsCreated:  m.counter.Created(resource.TypeView),
		ViewsReleased: m.counter.Dropped(resource.TypeView),
		LiveViews:     m.counter.Live(resource.TypeView),
		LiveRoots:     m.live,
	}
}

func (m *ViewManager) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing || m.closed {
		return errors.Closed("view manager")
	}
	m.renders++
	return nil
}

func (m *ViewManager) finish(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.live++
	} else {
		m.failures++
	}
}

func (m *ViewManager) rootFreed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.live--
	if m.closing && m.live == 0 {
		m.closed = true
		m.log.Debug("view manager closed after last root")
	}
}
