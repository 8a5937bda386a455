package engine

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/errors"
	"github.com/wippyai/shard-runtime/layout"
	"github.com/wippyai/shard-runtime/resource"
)

// Root owns the view tree of one successful render together with the layout
// state needed to re-measure it.
type Root struct {
	manager *ViewManager
	table   *resource.UnifiedTable
	views   resource.TypedTable[*viewEntry]
	sink    *releaseSink
	top     *viewEntry
	entries []*viewEntry

	computer   layout.Computer
	constraint shardruntime.Size
	size       shardruntime.Size
	valid      bool
	busy       bool
	freed      bool
}

// View returns the top-level host view. The Root keeps ownership.
func (r *Root) View() shardruntime.View {
	if r.freed {
		return nil
	}
	return r.top.view
}

// Kind returns the node kind of the top-level view.
func (r *Root) Kind() string {
	return r.top.node.Kind
}

// Size returns the laid out size of the top-level view.
func (r *Root) Size() shardruntime.Size {
	return r.size
}

// Constraint returns the constraint of the last successful layout.
func (r *Root) Constraint() shardruntime.Size {
	return r.constraint
}

// Len returns the number of views the Root owns.
func (r *Root) Len() int {
	return len(r.entries)
}

// Frames returns the last applied frame of every view in document order.
func (r *Root) Frames() []shardruntime.Frame {
	frames := make([]shardruntime.Frame, len(r.entries))
	for i, e := range r.entries {
		frames[i] = e.frame
	}
	return frames
}

// Measure lays the tree out against size and calls SetFrame only on views
// whose frame changed. Measuring with the last successful constraint makes
// no host calls.
func (r *Root) Measure(size shardruntime.Size) error {
	if r.freed {
		return errors.Released("root")
	}
	if r.busy {
		return errors.New(errors.PhaseLifecycle, errors.KindInUse).
			Detail("root is already being measured").
			Build()
	}
	if err := checkConstraint(size); err != nil {
		return err
	}
	if r.valid && r.constraint.Equal(size) {
		return nil
	}

	if err := r.layout(size); err != nil {
		r.manager.log.Warn("measure failed", zap.Error(err))
		return err
	}
	return nil
}

// checkConstraint rejects negative and infinite axes. NaN is the only
// sentinel for an unlimited axis.
func checkConstraint(size shardruntime.Size) error {
	if size.Bounded() {
		return nil
	}
	return errors.New(errors.PhaseLayout, errors.KindInvalidValue).
		Op(OpMeasure).
		Value(size).
		Detail("constraint %gx%g must be non-negative and finite or unbounded", size.Width, size.Height).
		Build()
}

// layout computes frames for size and applies the changed ones.
func (r *Root) layout(size shardruntime.Size) error {
	r.busy = true
	defer func() { r.busy = false }()
	r.valid = false

	if err := r.computer.Compute(r.top.box, size); err != nil {
		return err
	}

	applied := 0
	for _, e := range r.entries {
		f := e.box.Frame
		if e.framed && e.frame == f {
			continue
		}
		err := guard(errors.PhaseMutate, OpSetFrame, e.node, func() error {
			return e.view.SetFrame(f)
		})
		if err != nil {
			return err
		}
		e.frame, e.framed = f, true
		applied++
	}

	r.constraint = size
	r.size = r.top.box.Frame.Size()
	r.valid = true
	r.manager.log.Debug("layout applied",
		zap.Int("frames", applied),
		zap.Int("views", len(r.entries)))
	return nil
}

// Free releases every owned view exactly once, most recently created first.
// Freeing a freed Root returns a KindReleased error and touches no view.
func (r *Root) Free() error {
	if r.freed {
		return errors.Released("root")
	}
	if r.busy {
		return errors.New(errors.PhaseLifecycle, errors.KindInUse).
			Detail("root freed during measure").
			Build()
	}
	r.freed = true

	r.table.Clear()
	err := multierr.Append(r.sink.take(), r.table.Close())
	r.manager.rootFreed()

	if err != nil {
		r.manager.log.Warn("root released with errors", zap.Error(err))
		return err
	}
	r.manager.log.Debug("root freed", zap.Int("views", len(r.entries)))
	return nil
}

// Freed reports whether Free has been called.
func (r *Root) Freed() bool {
	return r.freed
}
