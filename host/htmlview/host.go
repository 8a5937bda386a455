// Package htmlview hosts views as HTML element nodes. Frames become absolute
// positioning styles and text is measured with a fixed bitmap face, so the
// rendered markup reproduces the engine's layout in a browser.
package htmlview

import (
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/host/props"
)

// DefaultTags maps the stock view kinds to elements.
var DefaultTags = map[string]string{
	"box":         "div",
	"text":        "span",
	"image":       "img",
	"button":      "button",
	"flexbox":     "div",
	"scroll":      "div",
	"solid-color": "div",
}

// fillKinds measure to their bounded constraint and to zero on unbounded
// axes. Their size comes from layout, not content.
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

// WithFace replaces the face used to measure text.
func WithFace(face font.Face) Option {
	return func(h *Host) {
		if face != nil {
			h.face = face
		}
	}
}

// Host creates HTML-backed views for registered kinds. It is not safe for
// concurrent use.
type Host struct {
	tags map[string]string
	face font.Face
	log  *zap.Logger
	live int
}

// NewHost creates a Host with DefaultTags registered.
func NewHost(opts ...Option) *Host {
	h := &Host{
		tags: make(map[string]string, len(DefaultTags)),
		face: basicfont.Face7x13,
		log:  zap.NewNop(),
	}
	for kind, tag := range DefaultTags {
		h.tags[kind] = tag
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register maps kind to an element tag, replacing any previous mapping.
func (h *Host) Register(kind, tag string) *Host {
	h.tags[kind] = tag
	return h
}

// Kinds returns the registered kinds in sorted order.
func (h *Host) Kinds() []string {
	kinds := make([]string, 0, len(h.tags))
	for k := range h.tags {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Live returns the number of created views not yet released.
func (h *Host) Live() int {
	return h.live
}

// CreateView implements shardruntime.ViewFactory.
func (h *Host) CreateView(_ any, kind string) (shardruntime.View, error) {
	tag, ok := h.tags[kind]
	if !ok {
		return nil, fmt.Errorf("no element registered for kind %q", kind)
	}
	node := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tag)),
		Data:     tag,
	}
	v := &View{host: h, Kind: kind, Node: node, lineHeight: 1}
	if kind == "scroll" {
		v.setDirection(props.Vertical)
	}
	h.live++
	h.log.Debug("html view created", zap.String("kind", kind), zap.String("tag", tag))
	return v, nil
}

// Render writes v and its subtree as HTML.
func Render(w io.Writer, v shardruntime.View) error {
	hv, ok := v.(*View)
	if !ok {
		return fmt.Errorf("htmlview: cannot render %T", v)
	}
	if hv.released {
		return fmt.Errorf("htmlview: render of released %s view", hv.Kind)
	}
	return html.Render(w, hv.Node)
}
