package shardruntime

import "math"

// Unbounded marks an axis without a size constraint.
var Unbounded = float32(math.NaN())

// IsUnbounded reports whether v is the unbounded sentinel.
func IsUnbounded(v float32) bool {
	return v != v
}

// Size is a width/height pair used both as a constraint and as a measured result.
type Size struct {
	Width  float32
	Height float32
}

// UnboundedSize returns a Size unconstrained on both axes.
func UnboundedSize() Size {
	return Size{Width: Unbounded, Height: Unbounded}
}

// Constrain clamps s to c on every bounded axis of c.
func (s Size) Constrain(c Size) Size {
	if !IsUnbounded(c.Width) && s.Width > c.Width {
		s.Width = c.Width
	}
	if !IsUnbounded(c.Height) && s.Height > c.Height {
		s.Height = c.Height
	}
	return s
}

// Valid reports whether both axes are finite and non-negative.
func (s Size) Valid() bool {
	return validExtent(s.Width) && validExtent(s.Height)
}

// Bounded reports whether every axis is either Unbounded or a finite
// non-negative extent, which is what a layout constraint may carry.
func (s Size) Bounded() bool {
	return constraintExtent(s.Width) && constraintExtent(s.Height)
}

// Equal compares sizes, treating two unbounded axes as equal.
func (s Size) Equal(o Size) bool {
	return sameExtent(s.Width, o.Width) && sameExtent(s.Height, o.Height)
}

// Frame is a view's origin relative to its parent plus its size.
type Frame struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// Size returns the frame's extent.
func (f Frame) Size() Size {
	return Size{Width: f.Width, Height: f.Height}
}

func validExtent(v float32) bool {
	return !IsUnbounded(v) && !math.IsInf(float64(v), 0) && v >= 0
}

func constraintExtent(v float32) bool {
	return IsUnbounded(v) || validExtent(v)
}

func sameExtent(a, b float32) bool {
	if IsUnbounded(a) || IsUnbounded(b) {
		return IsUnbounded(a) && IsUnbounded(b)
	}
	return a == b
}

// View is the engine's proxy for one host-native view.
type View interface {
	// SetFrame applies geometry relative to the parent view.
	SetFrame(frame Frame) error

	// SetProp applies one declared property. Values are strings; structured
	// JSON values arrive as compact JSON text.
	SetProp(key, value string) error

	// AddChild appends a fully initialized child view.
	AddChild(child View) error

	// Measure returns the natural size under constraint.
	// Axes of constraint may be Unbounded.
	Measure(constraint Size) (Size, error)
}

// Releaser is optionally implemented by views that hold host resources.
// The engine calls Release exactly once per view.
type Releaser interface {
	Release() error
}

// ViewFactory creates host views by node kind.
type ViewFactory interface {
	CreateView(hostCtx any, kind string) (View, error)
}

// ViewFactoryFunc adapts a function to ViewFactory.
type ViewFactoryFunc func(hostCtx any, kind string) (View, error)

// CreateView calls f(hostCtx, kind).
func (f ViewFactoryFunc) CreateView(hostCtx any, kind string) (View, error) {
	return f(hostCtx, kind)
}
