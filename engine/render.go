package engine

import (
	stderrors "errors"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/document"
	"github.com/wippyai/shard-runtime/errors"
	"github.com/wippyai/shard-runtime/layout"
	"github.com/wippyai/shard-runtime/resource"
)

// Boundary operation names used in errors and logs.
const (
	OpCreateView = "create_view"
	OpSetProp    = "set_prop"
	OpAddChild   = "add_child"
	OpSetFrame   = "set_frame"
	OpMeasure    = "measure"
	OpRelease    = "release"
)

// RenderOptions tunes a single render.
type RenderOptions struct {
	// Constraint is the initial layout constraint. Nil lays out unbounded.
	Constraint *shardruntime.Size
}

// Render decodes doc and builds its view tree through the manager's factory.
// On failure every view created by this call has been released and no Root
// is returned.
func (m *ViewManager) Render(hostCtx any, doc []byte) (*Root, error) {
	return m.RenderWith(hostCtx, doc, RenderOptions{})
}

// RenderWith is Render with explicit options.
func (m *ViewManager) RenderWith(hostCtx any, doc []byte, opts RenderOptions) (*Root, error) {
	if opts.Constraint != nil {
		if err := checkConstraint(*opts.Constraint); err != nil {
			return nil, err
		}
	}
	if err := m.begin(); err != nil {
		return nil, err
	}

	root, err := m.render(hostCtx, doc, opts)
	m.finish(err == nil)
	if err != nil {
		m.log.Warn("render failed", zap.Error(err))
		return nil, err
	}

	m.log.Debug("rendered",
		zap.String("kind", root.top.node.Kind),
		zap.Int("views", len(root.entries)),
		zap.Float32("width", root.size.Width),
		zap.Float32("height", root.size.Height))
	return root, nil
}

func (m *ViewManager) render(hostCtx any, doc []byte, opts RenderOptions) (*Root, error) {
	tree, err := document.Parse(doc, m.parseOpts...)
	if err != nil {
		return nil, err
	}

	constraint := shardruntime.UnboundedSize()
	if opts.Constraint != nil {
		constraint = *opts.Constraint
	}

	table := resource.NewTable()
	table.Subscribe(m.counter)

	r := &Root{
		manager: m,
		table:   table,
		views:   resource.NewTyped[*viewEntry](table, resource.TypeView),
		sink:    &releaseSink{},
		entries: make([]*viewEntry, 0, tree.Count()),
	}

	b := builder{root: r, factory: m.factory, hostCtx: hostCtx}
	top, err := b.build(tree)
	if err == nil {
		r.top = top
		err = r.layout(constraint)
	}
	if err != nil {
		return nil, r.unwind(err)
	}
	return r, nil
}

type builder struct {
	root    *Root
	factory shardruntime.ViewFactory
	hostCtx any
}

// build creates n's view, applies its props, then builds and attaches each
// child in document order.
func (b *builder) build(n *document.Node) (*viewEntry, error) {
	var view shardruntime.View
	err := guard(errors.PhaseConstruct, OpCreateView, n, func() error {
		v, err := b.factory.CreateView(b.hostCtx, n.Kind)
		if err != nil {
			return err
		}
		if v == nil {
			return stderrors.New("factory returned no view")
		}
		view = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	e := &viewEntry{view: view, node: n, sink: b.root.sink}
	e.handle = b.root.views.Insert(e)
	e.box = &layout.Node{Style: n.Style}
	b.root.entries = append(b.root.entries, e)

	for _, p := range n.Props {
		err := guard(errors.PhaseMutate, OpSetProp, n, func() error {
			return view.SetProp(p.Key, p.Value)
		})
		if err != nil {
			return nil, err
		}
	}

	if len(n.Children) == 0 {
		e.box.Measure = e.measure
		return e, nil
	}

	e.box.Children = make([]*layout.Node, 0, len(n.Children))
	for _, c := range n.Children {
		child, err := b.build(c)
		if err != nil {
			return nil, err
		}
		err = guard(errors.PhaseMutate, OpAddChild, n, func() error {
			return view.AddChild(child.view)
		})
		if err != nil {
			return nil, err
		}
		e.box.Children = append(e.box.Children, child.box)
	}
	return e, nil
}

// guard runs a host capability, converting failures and panics into errors
// that carry the node's path and kind.
func guard(phase errors.Phase, op string, n *document.Node, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e := errors.Recovered(phase, op, r)
			e.ViewKind = n.Kind
			e.Path = n.Path
			err = e
		}
	}()
	if err := fn(); err != nil {
		return errors.HostFailure(phase, op, n.Kind, n.Path, err)
	}
	return nil
}

// viewEntry is one owned view of a Root. Dropping it releases the view.
type viewEntry struct {
	view   shardruntime.View
	node   *document.Node
	box    *layout.Node
	sink   *releaseSink
	frame  shardruntime.Frame
	handle resource.Handle

	framed   bool
	measured map[sizeKey]shardruntime.Size
}

// sizeKey identifies a constraint; NaN axes share one key.
type sizeKey [2]uint32

// maxMeasurements bounds the per-view answer cache.
const maxMeasurements = 16

func keyOf(s shardruntime.Size) sizeKey {
	return sizeKey{axisBits(s.Width), axisBits(s.Height)}
}

func axisBits(v float32) uint32 {
	if shardruntime.IsUnbounded(v) {
		return math.Float32bits(float32(math.NaN()))
	}
	return math.Float32bits(v)
}

// measure is the layout oracle for leaf views. Answers are reused for
// constraints the view has already been asked about.
func (e *viewEntry) measure(c shardruntime.Size) (shardruntime.Size, error) {
	key := keyOf(c)
	if out, ok := e.measured[key]; ok {
		return out, nil
	}
	var out shardruntime.Size
	err := guard(errors.PhaseLayout, OpMeasure, e.node, func() error {
		s, err := e.view.Measure(c)
		out = s
		return err
	})
	if err != nil {
		return shardruntime.Size{}, err
	}
	if !out.Valid() {
		return shardruntime.Size{}, errors.New(errors.PhaseLayout, errors.KindInvalidValue).
			Op(OpMeasure).
			ViewKind(e.node.Kind).
			Path(e.node.Path...).
			Value(out).
			Detail("measured size %gx%g is not finite and non-negative", out.Width, out.Height).
			Build()
	}
	if e.measured == nil || len(e.measured) >= maxMeasurements {
		e.measured = make(map[sizeKey]shardruntime.Size)
	}
	e.measured[key] = out
	return out, nil
}

// Drop implements resource.Dropper.
func (e *viewEntry) Drop() {
	r, ok := e.view.(shardruntime.Releaser)
	if !ok {
		return
	}
	err := guard(errors.PhaseLifecycle, OpRelease, e.node, r.Release)
	e.sink.add(err)
}

type releaseSink struct {
	err error
}

func (s *releaseSink) add(err error) {
	s.err = multierr.Append(s.err, err)
}

func (s *releaseSink) take() error {
	err := s.err
	s.err = nil
	return err
}

// unwind releases every view built so far and returns cause combined with
// any release failures.
func (r *Root) unwind(cause error) error {
	r.table.Clear()
	r.table.Close()
	if err := r.sink.take(); err != nil {
		r.manager.log.Warn("release failed during unwind", zap.Error(err))
		return multierr.Append(cause, err)
	}
	return cause
}
