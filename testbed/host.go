// Package testbed provides a recording fake host for exercising the render
// protocol end to end.
package testbed

import (
	"errors"
	"fmt"
	"strings"

	shardruntime "github.com/wippyai/shard-runtime"
)

// Capability names as they appear in recorded calls.
const (
	OpCreateView = "create_view"
	OpSetProp    = "set_prop"
	OpAddChild   = "add_child"
	OpSetFrame   = "set_frame"
	OpMeasure    = "measure"
	OpRelease    = "release"
)

// ErrInjected is returned by capabilities configured to fail.
var ErrInjected = errors.New("testbed: injected failure")

// Call is one recorded capability invocation.
type Call struct {
	Op         string
	Kind       string
	Key        string
	Value      string
	Frame      shardruntime.Frame
	Constraint shardruntime.Size
	View       int
	Child      int
}

func (c Call) String() string {
	switch c.Op {
	case OpCreateView:
		return fmt.Sprintf("create_view(%s)", c.Kind)
	case OpSetProp:
		return fmt.Sprintf("set_prop(%d,%s,%s)", c.View, c.Key, c.Value)
	case OpAddChild:
		return fmt.Sprintf("add_child(%d,%d)", c.View, c.Child)
	case OpSetFrame:
		f := c.Frame
		return fmt.Sprintf("set_frame(%d,%g,%g,%g,%g)", c.View, f.X, f.Y, f.Width, f.Height)
	case OpMeasure:
		return fmt.Sprintf("measure(%d)", c.View)
	default:
		return fmt.Sprintf("%s(%d)", c.Op, c.View)
	}
}

type fault struct {
	op    string
	kind  string
	panic bool
	after int
}

// Host is a recording fake of a native view framework. Views get IDs from 1
// in creation order. It is not safe for concurrent use.
type Host struct {
	sizes    map[string]shardruntime.Size
	allowed  map[string]struct{}
	views    []*View
	calls    []Call
	faults   []*fault
	contexts []any
}

// NewHost creates a Host accepting every kind with a zero intrinsic size.
func NewHost() *Host {
	return &Host{sizes: make(map[string]shardruntime.Size)}
}

// Allow restricts CreateView to the registered kinds.
func (h *Host) Allow(kinds ...string) *Host {
	if h.allowed == nil {
		h.allowed = make(map[string]struct{})
	}
	for _, k := range kinds {
		h.allowed[k] = struct{}{}
	}
	return h
}

// SetSize sets the intrinsic size views of kind report from Measure.
func (h *Host) SetSize(kind string, size shardruntime.Size) *Host {
	h.sizes[kind] = size
	return h
}

// Fail makes the first matching capability call fail. An empty kind matches
// every view kind.
func (h *Host) Fail(op, kind string) *Host {
	h.faults = append(h.faults, &fault{op: op, kind: kind})
	return h
}

// FailAfter lets n matching calls succeed and fails the next one.
func (h *Host) FailAfter(op, kind string, n int) *Host {
	h.faults = append(h.faults, &fault{op: op, kind: kind, after: n})
	return h
}

// Panic makes the first matching capability call panic.
func (h *Host) Panic(op, kind string) *Host {
	h.faults = append(h.faults, &fault{op: op, kind: kind, panic: true})
	return h
}

func (h *Host) check(op, kind string) error {
	for i, f := range h.faults {
		if f.op != op || (f.kind != "" && f.kind != kind) {
			continue
		}
		if f.after > 0 {
			f.after--
			continue
		}
		h.faults = append(h.faults[:i], h.faults[i+1:]...)
		if f.panic {
			panic(fmt.Sprintf("testbed: %s on %s", op, kind))
		}
		return fmt.Errorf("%s %s: %w", op, kind, ErrInjected)
	}
	return nil
}

// CreateView implements shardruntime.ViewFactory.
func (h *Host) CreateView(hostCtx any, kind string) (shardruntime.View, error) {
	h.calls = append(h.calls, Call{Op: OpCreateView, Kind: kind})
	h.contexts = append(h.contexts, hostCtx)
	if err := h.check(OpCreateView, kind); err != nil {
		return nil, err
	}
	if h.allowed != nil {
		if _, ok := h.allowed[kind]; !ok {
			return nil, fmt.Errorf("no view registered for kind %q", kind)
		}
	}
	v := &View{host: h, ID: len(h.views) + 1, Kind: kind}
	h.views = append(h.views, v)
	return v, nil
}

// Calls returns every recorded call in order.
func (h *Host) Calls() []Call {
	return append([]Call(nil), h.calls...)
}

// CallsOf returns the recorded calls of one capability.
func (h *Host) CallsOf(op string) []Call {
	var out []Call
	for _, c := range h.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Trace renders the recorded calls one per line.
func (h *Host) Trace() string {
	lines := make([]string, len(h.calls))
	for i, c := range h.calls {
		lines[i] = c.String()
	}
	return strings.Join(lines, "\n")
}

// Reset forgets recorded calls but keeps views and configuration.
func (h *Host) Reset() {
	h.calls = nil
}

// Contexts returns the host context passed to each CreateView call.
func (h *Host) Contexts() []any {
	return append([]any(nil), h.contexts...)
}

// Views returns every view created so far, including released ones.
func (h *Host) Views() []*View {
	return append([]*View(nil), h.views...)
}

// View returns the view with the given ID, or nil.
func (h *Host) View(id int) *View {
	if id < 1 || id > len(h.views) {
		return nil
	}
	return h.views[id-1]
}

// Created returns the number of views created.
func (h *Host) Created() int {
	return len(h.views)
}

// Released returns the number of views released at least once.
func (h *Host) Released() int {
	n := 0
	for _, v := range h.views {
		if v.Releases > 0 {
			n++
		}
	}
	return n
}

// Live returns the number of views not yet released.
func (h *Host) Live() int {
	return h.Created() - h.Released()
}

// OverReleased returns the views released more than once.
func (h *Host) OverReleased() []*View {
	var out []*View
	for _, v := range h.views {
		if v.Releases > 1 {
			out = append(out, v)
		}
	}
	return out
}

// View is a recorded fake native view.
type View struct {
	host     *Host
	Kind     string
	Props    []string
	Children []*View
	Frame    shardruntime.Frame
	ID       int
	Releases int
}

func (v *View) record(c Call) error {
	c.View = v.ID
	v.host.calls = append(v.host.calls, c)
	if v.Releases > 0 && c.Op != OpRelease {
		return fmt.Errorf("%s on released view %d", c.Op, v.ID)
	}
	return v.host.check(c.Op, v.Kind)
}

// SetFrame implements shardruntime.View.
func (v *View) SetFrame(f shardruntime.Frame) error {
	if err := v.record(Call{Op: OpSetFrame, Frame: f}); err != nil {
		return err
	}
	v.Frame = f
	return nil
}

// SetProp implements shardruntime.View.
func (v *View) SetProp(key, value string) error {
	if err := v.record(Call{Op: OpSetProp, Key: key, Value: value}); err != nil {
		return err
	}
	v.Props = append(v.Props, key+"="+value)
	return nil
}

// AddChild implements shardruntime.View.
func (v *View) AddChild(child shardruntime.View) error {
	c, ok := child.(*View)
	if !ok {
		return fmt.Errorf("foreign child view %T", child)
	}
	if err := v.record(Call{Op: OpAddChild, Child: c.ID}); err != nil {
		return err
	}
	v.Children = append(v.Children, c)
	return nil
}

// Measure implements shardruntime.View. It reports the intrinsic size of
// the view's kind clamped to the bounded axes of constraint.
func (v *View) Measure(constraint shardruntime.Size) (shardruntime.Size, error) {
	if err := v.record(Call{Op: OpMeasure, Constraint: constraint}); err != nil {
		return shardruntime.Size{}, err
	}
	return v.host.sizes[v.Kind].Constrain(constraint), nil
}

// Release implements shardruntime.Releaser.
func (v *View) Release() error {
	v.Releases++
	return v.record(Call{Op: OpRelease})
}
