package layout

import (
	"fmt"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/errors"
)

// Unit tags a Dimension.
type Unit uint8

const (
	UnitAuto Unit = iota
	UnitPoints
	UnitPercent
)

// Dimension is a length in points, a percentage of the parent's inner size, or auto.
type Dimension struct {
	Value float32
	Unit  Unit
}

// Auto is the zero Dimension.
var Auto = Dimension{}

// Points returns a Dimension of v points.
func Points(v float32) Dimension {
	return Dimension{Unit: UnitPoints, Value: v}
}

// Percent returns a Dimension of v percent.
func Percent(v float32) Dimension {
	return Dimension{Unit: UnitPercent, Value: v}
}

// Resolve returns the length against base, or Unbounded when it cannot be resolved.
func (d Dimension) Resolve(base float32) float32 {
	switch d.Unit {
	case UnitPoints:
		return d.Value
	case UnitPercent:
		if defined(base) {
			return base * d.Value / 100
		}
	}
	return shardruntime.Unbounded
}

func (d Dimension) String() string {
	switch d.Unit {
	case UnitPoints:
		return fmt.Sprintf("%gpt", d.Value)
	case UnitPercent:
		return fmt.Sprintf("%g%%", d.Value)
	default:
		return "auto"
	}
}

type Direction uint8

const (
	DirectionRow Direction = iota
	DirectionColumn
	DirectionRowReverse
	DirectionColumnReverse
)

func (d Direction) isRow() bool {
	return d == DirectionRow || d == DirectionRowReverse
}

func (d Direction) isReverse() bool {
	return d == DirectionRowReverse || d == DirectionColumnReverse
}

type Justify uint8

const (
	JustifyFlexStart Justify = iota
	JustifyFlexEnd
	JustifyCenter
	JustifySpaceBetween
	JustifySpaceAround
	JustifySpaceEvenly
)

type Align uint8

const (
	AlignAuto Align = iota
	AlignStretch
	AlignFlexStart
	AlignFlexEnd
	AlignCenter
)

type Position uint8

const (
	PositionRelative Position = iota
	PositionAbsolute
)

// Wrap is parsed for compatibility; lines never wrap.
type Wrap uint8

const (
	WrapNoWrap Wrap = iota
	WrapWrap
	WrapReverse
)

// Edges holds one Dimension per edge. Start and End are the horizontal edges.
type Edges struct {
	Start  Dimension
	End    Dimension
	Top    Dimension
	Bottom Dimension
}

// Style is the subset of flexbox the engine lays out.
type Style struct {
	Width       Dimension
	Height      Dimension
	MinWidth    Dimension
	MinHeight   Dimension
	MaxWidth    Dimension
	MaxHeight   Dimension
	Basis       Dimension
	Padding     Edges
	Margin      Edges
	Offset      Edges
	Grow        float32
	Shrink      float32
	AspectRatio float32
	Direction   Direction
	Justify     Justify
	AlignItems  Align
	AlignSelf   Align
	Position    Position
	Wrap        Wrap
}

// DefaultStyle returns the web-compatible defaults: row direction, stretch
// alignment, flex-shrink 1 and no aspect ratio.
func DefaultStyle() Style {
	return Style{
		Shrink:      1,
		AspectRatio: shardruntime.Unbounded,
		AlignItems:  AlignStretch,
	}
}

var (
	directions = map[string]Direction{
		"row":            DirectionRow,
		"column":         DirectionColumn,
		"row-reverse":    DirectionRowReverse,
		"column-reverse": DirectionColumnReverse,
	}
	justifies = map[string]Justify{
		"flex-start":    JustifyFlexStart,
		"flex-end":      JustifyFlexEnd,
		"center":        JustifyCenter,
		"space-between": JustifySpaceBetween,
		"space-around":  JustifySpaceAround,
		"space-evenly":  JustifySpaceEvenly,
	}
	aligns = map[string]Align{
		"stretch":    AlignStretch,
		"flex-start": AlignFlexStart,
		"flex-end":   AlignFlexEnd,
		"center":     AlignCenter,
	}
	positions = map[string]Position{
		"relative": PositionRelative,
		"absolute": PositionAbsolute,
	}
	wraps = map[string]Wrap{
		"nowrap":       WrapNoWrap,
		"wrap":         WrapWrap,
		"wrap-reverse": WrapReverse,
	}
)

// ParseStyle decodes a "layout" object. Unknown keys are ignored; a known key
// with an unexpected value is an InvalidValue error at path.
func ParseStyle(path []string, raw map[string]any) (Style, error) {
	s := DefaultStyle()
	p := styleParser{path: path, raw: raw}

	p.enum("flex-direction", func(v string) bool {
		d, ok := directions[v]
		s.Direction = d
		return ok
	})
	p.enum("justify-content", func(v string) bool {
		j, ok := justifies[v]
		s.Justify = j
		return ok
	})
	p.enum("align-items", func(v string) bool {
		a, ok := aligns[v]
		s.AlignItems = a
		return ok
	})
	p.enum("align-self", func(v string) bool {
		if v == "auto" {
			s.AlignSelf = AlignAuto
			return true
		}
		a, ok := aligns[v]
		s.AlignSelf = a
		return ok
	})
	p.enum("position", func(v string) bool {
		pos, ok := positions[v]
		s.Position = pos
		return ok
	})
	p.enum("flex-wrap", func(v string) bool {
		w, ok := wraps[v]
		s.Wrap = w
		return ok
	})

	p.number("flex-grow", &s.Grow)
	p.number("flex-shrink", &s.Shrink)
	p.number("aspect-ratio", &s.AspectRatio)

	p.dimension("flex-basis", &s.Basis)
	p.dimension("width", &s.Width)
	p.dimension("height", &s.Height)
	p.dimension("min-width", &s.MinWidth)
	p.dimension("min-height", &s.MinHeight)
	p.dimension("max-width", &s.MaxWidth)
	p.dimension("max-height", &s.MaxHeight)

	p.edges("padding", &s.Padding)
	p.edges("margin", &s.Margin)
	p.dimension("start", &s.Offset.Start)
	p.dimension("end", &s.Offset.End)
	p.dimension("top", &s.Offset.Top)
	p.dimension("bottom", &s.Offset.Bottom)

	if p.err != nil {
		return Style{}, p.err
	}
	return s, nil
}

type styleParser struct {
	err  error
	raw  map[string]any
	path []string
}

func (p *styleParser) fail(key string, value any) {
	if p.err == nil {
		p.err = errors.InvalidValue(p.path, key, value)
	}
}

func (p *styleParser) enum(key string, set func(string) bool) {
	v, ok := p.raw[key]
	if !ok || v == nil {
		return
	}
	str, ok := v.(string)
	if !ok || !set(str) {
		p.fail(key, v)
	}
}

func (p *styleParser) number(key string, dst *float32) {
	v, ok := p.raw[key]
	if !ok || v == nil {
		return
	}
	f, ok := v.(float64)
	if !ok || f < 0 {
		p.fail(key, v)
		return
	}
	*dst = float32(f)
}

func (p *styleParser) dimension(key string, dst *Dimension) {
	v, ok := p.raw[key]
	if !ok || v == nil {
		return
	}
	d, ok := parseDimension(v)
	if !ok {
		p.fail(key, v)
		return
	}
	*dst = d
}

func (p *styleParser) edges(prefix string, dst *Edges) {
	p.dimension(prefix, &dst.Start)
	dst.End, dst.Top, dst.Bottom = dst.Start, dst.Start, dst.Start
	p.dimension(prefix+"-start", &dst.Start)
	p.dimension(prefix+"-end", &dst.End)
	p.dimension(prefix+"-top", &dst.Top)
	p.dimension(prefix+"-bottom", &dst.Bottom)
}

// parseDimension accepts a bare number (points), "auto", or
// {"unit": "points"|"percent"|"auto", "value": N}.
func parseDimension(v any) (Dimension, bool) {
	switch t := v.(type) {
	case float64:
		return Points(float32(t)), true
	case string:
		if t == "auto" {
			return Auto, true
		}
	case map[string]any:
		unit, _ := t["unit"].(string)
		if unit == "auto" {
			return Auto, true
		}
		value, ok := t["value"].(float64)
		if !ok {
			return Dimension{}, false
		}
		switch unit {
		case "points", "pixels":
			return Points(float32(value)), true
		case "percent":
			return Percent(float32(value)), true
		}
	}
	return Dimension{}, false
}
