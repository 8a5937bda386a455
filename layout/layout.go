package layout

import (
	"fmt"

	shardruntime "github.com/wippyai/shard-runtime"
)

// MeasureFunc asks a leaf's host view for its natural content size.
// Axes of constraint may be Unbounded.
type MeasureFunc func(constraint shardruntime.Size) (shardruntime.Size, error)

// Node is one box in the layout tree. Frame is written by Compute and is
// relative to the parent's border box.
type Node struct {
	Measure  MeasureFunc
	Children []*Node
	Style    Style
	Frame    shardruntime.Frame

	memo memo
}

type memo struct {
	size   shardruntime.Size
	key    inputs
	pass   uint64
	cached bool
}

type inputs struct {
	forced shardruntime.Size
	avail  shardruntime.Size
	base   shardruntime.Size
}

func (a inputs) equal(b inputs) bool {
	return a.forced.Equal(b.forced) && a.avail.Equal(b.avail) && a.base.Equal(b.base)
}

// MeasureError reports a host size that is negative or not finite.
type MeasureError struct {
	Size shardruntime.Size
}

func (e *MeasureError) Error() string {
	return fmt.Sprintf("measure returned invalid size %gx%g", e.Size.Width, e.Size.Height)
}

// Computer lays out trees. The zero value is ready to use.
type Computer struct {
	pass uint64
}

// Compute lays out root inside available. A bounded axis of available is
// the root's size along that axis unless the root's style fixes it.
func (c *Computer) Compute(root *Node, available shardruntime.Size) error {
	c.pass++
	forced := shardruntime.UnboundedSize()
	if root.Style.Width.Unit == UnitAuto && defined(available.Width) {
		forced.Width = clampDim(available.Width, root.Style.MinWidth, root.Style.MaxWidth, available.Width)
	}
	if root.Style.Height.Unit == UnitAuto && defined(available.Height) {
		forced.Height = clampDim(available.Height, root.Style.MinHeight, root.Style.MaxHeight, available.Height)
	}
	size, err := c.layout(root, forced, available, available)
	if err != nil {
		return err
	}
	root.Frame = shardruntime.Frame{Width: size.Width, Height: size.Height}
	return nil
}

// Compute lays out root with a fresh Computer.
func Compute(root *Node, available shardruntime.Size) error {
	var c Computer
	return c.Compute(root, available)
}

func defined(v float32) bool {
	return !shardruntime.IsUnbounded(v)
}

func orZero(v float32) float32 {
	if defined(v) {
		return v
	}
	return 0
}

// shrinkBy subtracts d from an extent, keeping Unbounded and flooring at zero.
func shrinkBy(v, d float32) float32 {
	if !defined(v) {
		return v
	}
	if v -= d; v < 0 {
		return 0
	}
	return v
}

func clampDim(v float32, minD, maxD Dimension, base float32) float32 {
	if !defined(v) {
		return v
	}
	if mx := maxD.Resolve(base); defined(mx) && v > mx {
		v = mx
	}
	if mn := minD.Resolve(base); defined(mn) && v < mn {
		v = mn
	}
	return v
}

type insets struct {
	start, end, top, bottom float32
}

func (i insets) horizontal() float32 { return i.start + i.end }
func (i insets) vertical() float32   { return i.top + i.bottom }

// resolveEdges resolves against the parent's inner width, as CSS does for
// padding and margin on both axes.
func resolveEdges(e Edges, base float32) insets {
	return insets{
		start:  orZero(e.Start.Resolve(base)),
		end:    orZero(e.End.Resolve(base)),
		top:    orZero(e.Top.Resolve(base)),
		bottom: orZero(e.Bottom.Resolve(base)),
	}
}

type axis struct {
	row bool
}

func (a axis) main(s shardruntime.Size) float32 {
	if a.row {
		return s.Width
	}
	return s.Height
}

func (a axis) cross(s shardruntime.Size) float32 {
	if a.row {
		return s.Height
	}
	return s.Width
}

func (a axis) size(main, cross float32) shardruntime.Size {
	if a.row {
		return shardruntime.Size{Width: main, Height: cross}
	}
	return shardruntime.Size{Width: cross, Height: main}
}

func (a axis) mainEdges(i insets) (lead, trail float32) {
	if a.row {
		return i.start, i.end
	}
	return i.top, i.bottom
}

func (a axis) crossEdges(i insets) (lead, trail float32) {
	if a.row {
		return i.top, i.bottom
	}
	return i.start, i.end
}

func (a axis) crossDim(s Style) Dimension {
	if a.row {
		return s.Height
	}
	return s.Width
}

type item struct {
	node   *Node
	margin insets
	forced shardruntime.Size
	avail  shardruntime.Size
	size   shardruntime.Size
	align  Align
}

// layout computes n's border-box size. Defined axes of forced are imposed by
// the parent; avail bounds the node when its size is auto; base is the
// parent's inner size used for percentages.
func (c *Computer) layout(n *Node, forced, avail, base shardruntime.Size) (shardruntime.Size, error) {
	key := inputs{forced: forced, avail: avail, base: base}
	if n.memo.cached && n.memo.pass == c.pass && n.memo.key.equal(key) {
		return n.memo.size, nil
	}

	size, err := c.compute(n, forced, avail, base)
	if err != nil {
		return shardruntime.Size{}, err
	}
	n.memo = memo{size: size, key: key, pass: c.pass, cached: true}
	return size, nil
}

func (c *Computer) compute(n *Node, forced, avail, base shardruntime.Size) (shardruntime.Size, error) {
	s := n.Style

	w := forced.Width
	if !defined(w) {
		w = clampDim(s.Width.Resolve(base.Width), s.MinWidth, s.MaxWidth, base.Width)
	}
	h := forced.Height
	if !defined(h) {
		h = clampDim(s.Height.Resolve(base.Height), s.MinHeight, s.MaxHeight, base.Height)
	}
	if ratio := s.AspectRatio; defined(ratio) && ratio > 0 {
		if defined(w) && !defined(h) {
			h = w / ratio
		} else if defined(h) && !defined(w) {
			w = h * ratio
		}
	}

	pad := resolveEdges(s.Padding, base.Width)

	if len(n.Children) == 0 {
		return c.leaf(n, w, h, avail, base, pad)
	}

	ax := axis{row: s.Direction.isRow()}
	inner := shardruntime.Size{
		Width:  shrinkBy(w, pad.horizontal()),
		Height: shrinkBy(h, pad.vertical()),
	}
	innerAvail := shardruntime.Size{
		Width:  shrinkBy(pick(w, avail.Width), pad.horizontal()),
		Height: shrinkBy(pick(h, avail.Height), pad.vertical()),
	}

	var flow, absolute []*item
	for _, child := range n.Children {
		it := &item{node: child, margin: resolveEdges(child.Style.Margin, inner.Width)}
		if child.Style.Position == PositionAbsolute {
			absolute = append(absolute, it)
			continue
		}
		it.align = child.Style.AlignSelf
		if it.align == AlignAuto {
			it.align = s.AlignItems
		}
		it.avail = shardruntime.Size{
			Width:  shrinkBy(innerAvail.Width, it.margin.horizontal()),
			Height: shrinkBy(innerAvail.Height, it.margin.vertical()),
		}
		it.forced = shardruntime.UnboundedSize()
		if basis := child.Style.Basis.Resolve(ax.main(inner)); defined(basis) {
			it.forced = ax.size(basis, shardruntime.Unbounded)
		}
		crossLead, crossTrail := ax.crossEdges(it.margin)
		if it.align == AlignStretch && ax.crossDim(child.Style).Unit == UnitAuto && defined(ax.cross(inner)) {
			it.forced = ax.size(ax.main(it.forced), shrinkBy(ax.cross(inner), crossLead+crossTrail))
		}
		size, err := c.layout(child, it.forced, it.avail, inner)
		if err != nil {
			return shardruntime.Size{}, err
		}
		it.size = size
		flow = append(flow, it)
	}

	if err := c.flex(flow, ax, ax.main(inner), ax.main(innerAvail), inner); err != nil {
		return shardruntime.Size{}, err
	}

	var used, crossMax float32
	for _, it := range flow {
		lead, trail := ax.mainEdges(it.margin)
		used += ax.main(it.size) + lead + trail
		cl, ct := ax.crossEdges(it.margin)
		if v := ax.cross(it.size) + cl + ct; v > crossMax {
			crossMax = v
		}
	}

	padMainLead, padMainTrail := ax.mainEdges(pad)
	padCrossLead, padCrossTrail := ax.crossEdges(pad)

	mainSize := ax.main(shardruntime.Size{Width: w, Height: h})
	if !defined(mainSize) {
		mainSize = used + padMainLead + padMainTrail
		if ax.row {
			mainSize = clampDim(mainSize, s.MinWidth, s.MaxWidth, base.Width)
		} else {
			mainSize = clampDim(mainSize, s.MinHeight, s.MaxHeight, base.Height)
		}
	}
	crossSize := ax.cross(shardruntime.Size{Width: w, Height: h})
	if !defined(crossSize) {
		crossSize = crossMax + padCrossLead + padCrossTrail
		if ax.row {
			crossSize = clampDim(crossSize, s.MinHeight, s.MaxHeight, base.Height)
		} else {
			crossSize = clampDim(crossSize, s.MinWidth, s.MaxWidth, base.Width)
		}
	}
	innerMain := mainSize - padMainLead - padMainTrail
	innerCross := crossSize - padCrossLead - padCrossTrail
	final := ax.size(innerMain, innerCross)

	// Stretch children against the now known cross size.
	for _, it := range flow {
		if it.align != AlignStretch || ax.crossDim(it.node.Style).Unit != UnitAuto {
			continue
		}
		cl, ct := ax.crossEdges(it.margin)
		want := shrinkBy(innerCross, cl+ct)
		if ax.cross(it.size) == want && defined(ax.cross(it.forced)) {
			continue
		}
		it.forced = ax.size(ax.main(it.size), want)
		size, err := c.layout(it.node, it.forced, it.avail, final)
		if err != nil {
			return shardruntime.Size{}, err
		}
		it.size = size
	}

	c.position(flow, ax, s, innerMain, innerCross, padMainLead, padCrossLead)

	border := ax.size(mainSize, crossSize)
	if err := c.positionAbsolute(absolute, border, pad, final); err != nil {
		return shardruntime.Size{}, err
	}
	return border, nil
}

func pick(v, fallback float32) float32 {
	if defined(v) {
		return v
	}
	return fallback
}

func (c *Computer) leaf(n *Node, w, h float32, avail, base shardruntime.Size, pad insets) (shardruntime.Size, error) {
	s := n.Style
	if defined(w) && defined(h) {
		return shardruntime.Size{Width: w, Height: h}, nil
	}

	var content shardruntime.Size
	if n.Measure != nil {
		constraint := shardruntime.Size{
			Width:  shrinkBy(pick(w, avail.Width), pad.horizontal()),
			Height: shrinkBy(pick(h, avail.Height), pad.vertical()),
		}
		measured, err := n.Measure(constraint)
		if err != nil {
			return shardruntime.Size{}, err
		}
		if !measured.Valid() {
			return shardruntime.Size{}, &MeasureError{Size: measured}
		}
		content = measured
	}

	if !defined(w) {
		w = clampDim(content.Width+pad.horizontal(), s.MinWidth, s.MaxWidth, base.Width)
	}
	if !defined(h) {
		h = clampDim(content.Height+pad.vertical(), s.MinHeight, s.MaxHeight, base.Height)
	}
	return shardruntime.Size{Width: w, Height: h}, nil
}

// flex grows or shrinks in-flow items along the main axis.
func (c *Computer) flex(flow []*item, ax axis, innerMain, availMain float32, inner shardruntime.Size) error {
	var used, grow, scaledShrink float32
	for _, it := range flow {
		lead, trail := ax.mainEdges(it.margin)
		used += ax.main(it.size) + lead + trail
		grow += it.node.Style.Grow
		scaledShrink += it.node.Style.Shrink * ax.main(it.size)
	}

	var free float32
	switch {
	case defined(innerMain):
		free = innerMain - used
	case defined(availMain) && used > availMain:
		free = availMain - used
	default:
		return nil
	}

	for _, it := range flow {
		main := ax.main(it.size)
		target := main
		switch {
		case free > 0 && grow > 0:
			target = main + free*it.node.Style.Grow/grow
		case free < 0 && scaledShrink > 0:
			target = main + free*it.node.Style.Shrink*main/scaledShrink
			if target < 0 {
				target = 0
			}
		}
		if target == main {
			continue
		}
		it.forced = ax.size(target, ax.cross(it.forced))
		size, err := c.layout(it.node, it.forced, it.avail, inner)
		if err != nil {
			return err
		}
		it.size = size
	}
	return nil
}

func (c *Computer) position(flow []*item, ax axis, s Style, innerMain, innerCross, padMain, padCross float32) {
	var used float32
	for _, it := range flow {
		lead, trail := ax.mainEdges(it.margin)
		used += ax.main(it.size) + lead + trail
	}
	free := innerMain - used

	var offset, gap float32
	count := float32(len(flow))
	switch s.Justify {
	case JustifyFlexEnd:
		offset = free
	case JustifyCenter:
		offset = free / 2
	case JustifySpaceBetween:
		if free > 0 && count > 1 {
			gap = free / (count - 1)
		}
	case JustifySpaceAround:
		if free > 0 && count > 0 {
			gap = free / count
			offset = gap / 2
		}
	case JustifySpaceEvenly:
		if free > 0 && count > 0 {
			gap = free / (count + 1)
			offset = gap
		}
	}

	cursor := offset
	for _, it := range flow {
		lead, trail := ax.mainEdges(it.margin)
		mainSize := ax.main(it.size)
		mainPos := cursor + lead
		if s.Direction.isReverse() {
			mainPos = innerMain - cursor - lead - mainSize
		}
		cursor += lead + mainSize + trail + gap

		cl, ct := ax.crossEdges(it.margin)
		crossSize := ax.cross(it.size)
		var crossPos float32
		switch it.align {
		case AlignFlexEnd:
			crossPos = innerCross - crossSize - ct
		case AlignCenter:
			crossPos = cl + (innerCross-crossSize-cl-ct)/2
		default:
			crossPos = cl
		}

		it.node.Frame = frameOf(ax, padMain+mainPos, padCross+crossPos, it.size)
	}
}

func frameOf(ax axis, mainPos, crossPos float32, size shardruntime.Size) shardruntime.Frame {
	f := shardruntime.Frame{Width: size.Width, Height: size.Height}
	if ax.row {
		f.X, f.Y = mainPos, crossPos
	} else {
		f.X, f.Y = crossPos, mainPos
	}
	return f
}

func (c *Computer) positionAbsolute(items []*item, border shardruntime.Size, pad insets, inner shardruntime.Size) error {
	for _, it := range items {
		st := it.node.Style
		start := st.Offset.Start.Resolve(inner.Width)
		end := st.Offset.End.Resolve(inner.Width)
		top := st.Offset.Top.Resolve(inner.Height)
		bottom := st.Offset.Bottom.Resolve(inner.Height)

		forced := shardruntime.UnboundedSize()
		if st.Width.Unit == UnitAuto && defined(start) && defined(end) {
			forced.Width = shrinkBy(inner.Width, start+end+it.margin.horizontal())
		}
		if st.Height.Unit == UnitAuto && defined(top) && defined(bottom) {
			forced.Height = shrinkBy(inner.Height, top+bottom+it.margin.vertical())
		}
		avail := shardruntime.Size{
			Width:  shrinkBy(inner.Width, it.margin.horizontal()),
			Height: shrinkBy(inner.Height, it.margin.vertical()),
		}
		size, err := c.layout(it.node, forced, avail, inner)
		if err != nil {
			return err
		}

		x := pad.start + it.margin.start
		switch {
		case defined(start):
			x += start
		case defined(end):
			x = border.Width - pad.end - end - it.margin.end - size.Width
		}
		y := pad.top + it.margin.top
		switch {
		case defined(top):
			y += top
		case defined(bottom):
			y = border.Height - pad.bottom - bottom - it.margin.bottom - size.Height
		}
		it.node.Frame = shardruntime.Frame{X: x, Y: y, Width: size.Width, Height: size.Height}
	}
	return nil
}
