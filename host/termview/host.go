// Package termview hosts views on a terminal cell grid. One cell is one
// layout unit; text width is counted in terminal columns so wide runes take
// two cells.
package termview

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
)

// DefaultKinds are the kinds a new Host accepts.
var DefaultKinds = []string{"box", "text", "image", "button", "flexbox", "scroll", "solid-color"}

// fillKinds measure to their bounded constraint and to zero on unbounded
// axes.
var fillKinds = map[string]bool{
	"flexbox":     true,
	"scroll":      true,
	"solid-color": true,
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		if l != nil {
			h.log = l
		}
	}
}

// Host creates cell-grid views. It is not safe for concurrent use.
type Host struct {
	kinds map[string]struct{}
	log   *zap.Logger
	live  int
}

// NewHost creates a Host accepting DefaultKinds.
func NewHost(opts ...Option) *Host {
	h := &Host{
		kinds: make(map[string]struct{}),
		log:   zap.NewNop(),
	}
	h.Register(DefaultKinds...)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds kinds to the accepted set.
func (h *Host) Register(kinds ...string) *Host {
	for _, k := range kinds {
		h.kinds[k] = struct{}{}
	}
	return h
}

// Kinds returns the accepted kinds in sorted order.
func (h *Host) Kinds() []string {
	out := make([]string, 0, len(h.kinds))
	for k := range h.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Live returns the number of views not yet released.
func (h *Host) Live() int {
	return h.live
}

// CreateView implements shardruntime.ViewFactory.
func (h *Host) CreateView(_ any, kind string) (shardruntime.View, error) {
	if _, ok := h.kinds[kind]; !ok {
		return nil, fmt.Errorf("no terminal view registered for kind %q", kind)
	}
	h.live++
	h.log.Debug("terminal view created", zap.String("kind", kind))
	return &View{host: h, Kind: kind, LineHeight: 1}, nil
}
