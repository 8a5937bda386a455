package bridge

import (
	"fmt"

	shardruntime "github.com/wippyai/shard-runtime"
)

// ViewFuncs is the capability table of one host view. Every capability gets
// the view's native reference and an error slot it fills on failure.
// Release is optional and is called once when the engine drops the view.
type ViewFuncs struct {
	SetFrame func(ref any, x, y, width, height float32, slot *ErrorSlot)
	SetProp  func(ref any, key, value string, slot *ErrorSlot)
	AddChild func(ref, child any, slot *ErrorSlot)
	Measure  func(ref any, constraint shardruntime.Size, slot *ErrorSlot) shardruntime.Size
	Release  func(ref any)
}

// CreateViewFunc is the host factory. It returns a handle obtained from
// ViewNew, or writes to slot on failure. Ownership of a returned handle
// passes to the engine.
type CreateViewFunc func(hostRef, hostCtx any, kind string, slot *ErrorSlot) ViewHandle

// hostView adapts a capability table to shardruntime.View.
type hostView struct {
	ref   any
	funcs ViewFuncs
}

func missing(op string) error {
	return fmt.Errorf("host view does not provide %s", op)
}

func (v *hostView) SetFrame(f shardruntime.Frame) error {
	if v.funcs.SetFrame == nil {
		return missing("set_frame")
	}
	var slot ErrorSlot
	v.funcs.SetFrame(v.ref, f.X, f.Y, f.Width, f.Height, &slot)
	return slot.Err()
}

func (v *hostView) SetProp(key, value string) error {
	if v.funcs.SetProp == nil {
		return missing("set_prop")
	}
	var slot ErrorSlot
	v.funcs.SetProp(v.ref, key, value, &slot)
	return slot.Err()
}

func (v *hostView) AddChild(child shardruntime.View) error {
	if v.funcs.AddChild == nil {
		return missing("add_child")
	}
	c, ok := child.(*hostView)
	if !ok {
		return fmt.Errorf("child %T was not created through the bridge", child)
	}
	var slot ErrorSlot
	v.funcs.AddChild(v.ref, c.ref, &slot)
	return slot.Err()
}

func (v *hostView) Measure(constraint shardruntime.Size) (shardruntime.Size, error) {
	if v.funcs.Measure == nil {
		return shardruntime.Size{}, missing("measure")
	}
	var slot ErrorSlot
	size := v.funcs.Measure(v.ref, constraint, &slot)
	if err := slot.Err(); err != nil {
		return shardruntime.Size{}, err
	}
	return size, nil
}

func (v *hostView) Release() error {
	if v.funcs.Release != nil {
		v.funcs.Release(v.ref)
	}
	return nil
}
