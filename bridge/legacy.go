package bridge

import (
	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
)

// LegacyViewFuncs is the v1 capability table, without error slots.
//
// Deprecated: host failures cannot be reported. Use ViewFuncs.
type LegacyViewFuncs struct {
	SetFrame func(ref any, x, y, width, height float32)
	SetProp  func(ref any, key, value string)
	AddChild func(ref, child any)
	Measure  func(ref any, constraint shardruntime.Size) shardruntime.Size
	Release  func(ref any)
}

// LegacyCreateViewFunc is the v1 factory. A zero handle is the only failure
// signal it has.
//
// Deprecated: use CreateViewFunc.
type LegacyCreateViewFunc func(hostRef, hostCtx any, kind string) ViewHandle

func (f LegacyViewFuncs) upgrade() ViewFuncs {
	var funcs ViewFuncs
	if f.SetFrame != nil {
		funcs.SetFrame = func(ref any, x, y, w, h float32, _ *ErrorSlot) { f.SetFrame(ref, x, y, w, h) }
	}
	if f.SetProp != nil {
		funcs.SetProp = func(ref any, key, value string, _ *ErrorSlot) { f.SetProp(ref, key, value) }
	}
	if f.AddChild != nil {
		funcs.AddChild = func(ref, child any, _ *ErrorSlot) { f.AddChild(ref, child) }
	}
	if f.Measure != nil {
		funcs.Measure = func(ref any, c shardruntime.Size, _ *ErrorSlot) shardruntime.Size { return f.Measure(ref, c) }
	}
	funcs.Release = f.Release
	return funcs
}

// LegacyViewNew is ViewNew for v1 hosts.
//
// Deprecated: use ViewNew.
func (b *Bridge) LegacyViewNew(ref any, funcs LegacyViewFuncs) ViewHandle {
	return b.ViewNew(ref, funcs.upgrade())
}

// LegacyViewManagerNew is ViewManagerNew for v1 hosts.
//
// Deprecated: use ViewManagerNew.
func (b *Bridge) LegacyViewManagerNew(hostRef any, create LegacyCreateViewFunc) ManagerHandle {
	if err := b.speaks(ProtocolLegacy); err != nil {
		b.log.Error("legacy view_manager_new refused", zap.Error(err))
		return 0
	}
	return b.viewManagerNew(hostRef, func(hostRef, hostCtx any, kind string, _ *ErrorSlot) ViewHandle {
		return create(hostRef, hostCtx, kind)
	})
}

// LegacyRender renders without an error slot. Failures are logged and
// return 0.
//
// Deprecated: use Render.
func (b *Bridge) LegacyRender(mgr ManagerHandle, hostCtx any, doc []byte) RootHandle {
	if err := b.speaks(ProtocolLegacy); err != nil {
		b.log.Error("legacy render refused", zap.Error(err))
		return 0
	}
	var slot ErrorSlot
	h := b.render(mgr, hostCtx, doc, &slot)
	if slot.Failed() {
		b.log.Warn("legacy render failed, error not reportable to host",
			zap.String("error", slot.Message()))
		return 0
	}
	return h
}

// LegacyRootMeasure measures without an error slot. Failures are logged.
//
// Deprecated: use RootMeasure.
func (b *Bridge) LegacyRootMeasure(h RootHandle, size shardruntime.Size) {
	if err := b.speaks(ProtocolLegacy); err != nil {
		b.log.Error("legacy root_measure refused", zap.Error(err))
		return
	}
	var slot ErrorSlot
	b.measure(h, size, &slot)
	if slot.Failed() {
		b.log.Warn("legacy measure failed, error not reportable to host",
			zap.String("error", slot.Message()))
	}
}
