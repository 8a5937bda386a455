package bridge

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/engine"
	"github.com/wippyai/shard-runtime/errors"
	"github.com/wippyai/shard-runtime/resource"
)

// ViewHandle identifies a host view created with ViewNew. Zero is invalid.
type ViewHandle uint32

// ManagerHandle identifies a view manager. Zero is invalid.
type ManagerHandle uint32

// RootHandle identifies a rendered Root. Zero means no Root.
type RootHandle uint32

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger for the bridge and the managers it creates.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.log = l
		}
	}
}

// WithProtocol binds the Bridge to p. Entry points of the other protocol are
// refused. New defaults to ProtocolErrorSlot.
func WithProtocol(p Protocol) Option {
	return func(b *Bridge) {
		b.protocol = p
	}
}

// WithManagerOptions applies opts to every manager created by ViewManagerNew.
func WithManagerOptions(opts ...engine.Option) Option {
	return func(b *Bridge) {
		b.managerOpts = append(b.managerOpts, opts...)
	}
}

// Stats counts live boundary handles.
type Stats struct {
	Managers     int
	Roots        int
	PendingViews int
}

// Bridge exposes the engine through opaque handles. A handle is valid from
// the call that returns it until the matching free; stale and mistyped
// handles are rejected rather than dereferenced.
type Bridge struct {
	table       *resource.UnifiedTable
	managers    resource.TypedTable[*engine.ViewManager]
	roots       resource.TypedTable[*engine.Root]
	views       resource.TypedTable[*hostView]
	counter     *resource.Counter
	log         *zap.Logger
	managerOpts []engine.Option
	protocol    Protocol
}

// New creates an empty Bridge.
func New(opts ...Option) *Bridge {
	table := resource.NewTable()
	b := &Bridge{
		table:    table,
		managers: resource.NewTyped[*engine.ViewManager](table, resource.TypeViewManager),
		roots:    resource.NewTyped[*engine.Root](table, resource.TypeRoot),
		views:    resource.NewTyped[*hostView](table, resource.TypeView),
		counter:  resource.NewCounter(),
		log:      Logger(),
	}
	table.Subscribe(b.counter)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect negotiates hostVersion and returns a Bridge bound to the resulting
// protocol.
func Connect(hostVersion string, opts ...Option) (*Bridge, error) {
	p, err := Negotiate(hostVersion)
	if err != nil {
		return nil, err
	}
	b := New(append(opts, WithProtocol(p))...)
	b.log.Info("host connected",
		zap.String("host_version", hostVersion),
		zap.Stringer("protocol", p))
	return b, nil
}

// Protocol returns the protocol the Bridge is bound to.
func (b *Bridge) Protocol() Protocol {
	return b.protocol
}

// speaks rejects a call made through the entry points of protocol p when
// the Bridge is bound to the other one.
func (b *Bridge) speaks(p Protocol) error {
	if b.protocol == p {
		return nil
	}
	return errors.New(errors.PhaseBoundary, errors.KindVersionMismatch).
		Value(p.String()).
		Detail("%s call on a bridge bound to the %s protocol", p, b.protocol).
		Build()
}

// Stats returns the number of live handles per type.
func (b *Bridge) Stats() Stats {
	return Stats{
		Managers:     b.counter.Live(resource.TypeViewManager),
		Roots:        b.counter.Live(resource.TypeRoot),
		PendingViews: b.counter.Live(resource.TypeView),
	}
}

// ViewNew wraps a native reference and its capabilities in a handle. The
// host owns the handle until it returns it from a CreateViewFunc.
func (b *Bridge) ViewNew(ref any, funcs ViewFuncs) ViewHandle {
	return ViewHandle(b.views.Insert(&hostView{ref: ref, funcs: funcs}))
}

// ViewFree frees a handle the host still owns. Handles already handed to
// the engine are owned by their Root and are rejected here.
func (b *Bridge) ViewFree(h ViewHandle) {
	if _, ok := b.views.Remove(resource.Handle(h)); !ok {
		b.log.Warn("view_free on a handle the host does not own",
			zap.Error(errors.InvalidHandle("view", uint32(h))))
	}
}

// ViewManagerNew registers a host factory and returns its manager handle.
func (b *Bridge) ViewManagerNew(hostRef any, create CreateViewFunc) ManagerHandle {
	if err := b.speaks(ProtocolErrorSlot); err != nil {
		b.log.Error("view_manager_new refused", zap.Error(err))
		return 0
	}
	return b.viewManagerNew(hostRef, create)
}

func (b *Bridge) viewManagerNew(hostRef any, create CreateViewFunc) ManagerHandle {
	factory := shardruntime.ViewFactoryFunc(func(hostCtx any, kind string) (shardruntime.View, error) {
		var slot ErrorSlot
		h := create(hostRef, hostCtx, kind, &slot)
		if err := slot.Err(); err != nil {
			return nil, err
		}
		v, ok := b.views.Remove(resource.Handle(h))
		if !ok {
			return nil, errors.InvalidHandle("view", uint32(h))
		}
		return v, nil
	})

	opts := append([]engine.Option{engine.WithLogger(b.log)}, b.managerOpts...)
	m := engine.NewViewManager(factory, opts...)
	return ManagerHandle(b.managers.Insert(m))
}

// ViewManagerFree invalidates a manager handle. Roots built by the manager
// keep it alive; it finishes closing when the last of them is freed.
func (b *Bridge) ViewManagerFree(h ManagerHandle) {
	m, ok := b.managers.Remove(resource.Handle(h))
	if !ok {
		b.log.Warn("view_manager_free on invalid handle",
			zap.Error(errors.InvalidHandle("view manager", uint32(h))))
		return
	}
	if err := m.Close(); err != nil {
		b.log.Warn("view manager freed before its roots", zap.Error(err))
	}
}

// Render builds a Root from doc. On failure it writes slot and returns 0.
func (b *Bridge) Render(mgr ManagerHandle, hostCtx any, doc []byte, slot *ErrorSlot) RootHandle {
	if slot == nil {
		b.log.Error("render called without an error slot")
		return 0
	}
	if err := b.speaks(ProtocolErrorSlot); err != nil {
		slot.Set(err)
		return 0
	}
	return b.render(mgr, hostCtx, doc, slot)
}

func (b *Bridge) render(mgr ManagerHandle, hostCtx any, doc []byte, slot *ErrorSlot) RootHandle {
	m, ok := b.managers.Get(resource.Handle(mgr))
	if !ok {
		slot.Set(errors.InvalidHandle("view manager", uint32(mgr)))
		return 0
	}

	root, err := m.Render(hostCtx, doc)
	if err != nil {
		slot.Set(err)
		return 0
	}

	h := b.roots.Insert(root)
	if h == 0 {
		slot.Set(multierr.Append(errors.Closed("bridge"), root.Free()))
		return 0
	}
	return RootHandle(h)
}

// RootGetView returns the native reference of the Root's top view, or nil
// for an invalid handle. It never changes the Root.
func (b *Bridge) RootGetView(h RootHandle) any {
	root, ok := b.roots.Get(resource.Handle(h))
	if !ok {
		return nil
	}
	if v, ok := root.View().(*hostView); ok {
		return v.ref
	}
	return nil
}

// RootMeasure re-lays out the Root against size, writing slot on failure.
// The Root handle is pinned for the duration of the call.
func (b *Bridge) RootMeasure(h RootHandle, size shardruntime.Size, slot *ErrorSlot) {
	if slot == nil {
		b.log.Error("root_measure called without an error slot")
		return
	}
	if err := b.speaks(ProtocolErrorSlot); err != nil {
		slot.Set(err)
		return
	}
	b.measure(h, size, slot)
}

func (b *Bridge) measure(h RootHandle, size shardruntime.Size, slot *ErrorSlot) {
	root, ok := b.roots.Get(resource.Handle(h))
	if !ok || !b.table.Borrow(resource.Handle(h)) {
		slot.Set(errors.InvalidHandle("root", uint32(h)))
		return
	}
	defer b.table.ReturnBorrow(resource.Handle(h))

	slot.Set(root.Measure(size))
}

// RootFree releases the Root's views and invalidates the handle. Freeing a
// Root from inside one of its own callbacks is refused.
func (b *Bridge) RootFree(h RootHandle) {
	handle := resource.Handle(h)
	if b.table.Borrowed(handle) {
		b.log.Warn("root_free during a call on the same root",
			zap.Error(errors.New(errors.PhaseLifecycle, errors.KindInUse).
				Detail("root %d is in use", uint32(h)).
				Build()))
		return
	}
	root, ok := b.roots.Remove(handle)
	if !ok {
		b.log.Warn("root_free on invalid handle",
			zap.Error(errors.InvalidHandle("root", uint32(h))))
		return
	}
	if err := root.Free(); err != nil {
		b.log.Warn("root released with errors", zap.Error(err))
	}
}

// Close frees every remaining Root, manager and pending view. Handles are
// invalid afterwards. Host callbacks run outside the table lock, so a
// Release may call back into the Bridge.
func (b *Bridge) Close() error {
	var roots []resource.Handle
	b.roots.Each(func(h resource.Handle, _ *engine.Root) bool {
		roots = append(roots, h)
		return true
	})
	var managers []resource.Handle
	b.managers.Each(func(h resource.Handle, _ *engine.ViewManager) bool {
		managers = append(managers, h)
		return true
	})

	var err error
	for _, h := range roots {
		if root, ok := b.roots.Remove(h); ok {
			err = multierr.Append(err, root.Free())
		}
	}
	for _, h := range managers {
		if m, ok := b.managers.Remove(h); ok {
			err = multierr.Append(err, m.Close())
		}
	}
	b.table.Clear()
	return multierr.Append(err, b.table.Close())
}
