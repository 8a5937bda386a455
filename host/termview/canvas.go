package termview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/host/props"
)

type cell struct {
	r    rune
	fg   string
	bg   string
	wide bool // trailing half of a double-width rune
}

// Canvas is a grid of styled cells.
type Canvas struct {
	Width  int
	Height int
	cells  []cell
	clip   *rect
}

// NewCanvas creates a blank canvas.
func NewCanvas(width, height int) *Canvas {
	width, height = max(width, 0), max(height, 0)
	c := &Canvas{Width: width, Height: height, cells: make([]cell, width*height)}
	for i := range c.cells {
		c.cells[i].r = ' '
	}
	return c
}

// Draw paints the tree rooted at v onto a canvas the size of v's frame.
// The root is drawn at the origin regardless of its frame position.
func Draw(v shardruntime.View) (*Canvas, error) {
	root, ok := v.(*View)
	if !ok {
		return nil, fmt.Errorf("termview: cannot draw %T", v)
	}
	if root.released {
		return nil, fmt.Errorf("termview: draw of released %s view", root.Kind)
	}
	f := root.frame
	c := NewCanvas(round(f.Width), round(f.Height))
	c.draw(root, -f.X, -f.Y, "", "")
	return c, nil
}

// At returns the rune at column x, row y, or 0 outside the canvas.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.cells[y*c.Width+x].r
}

func (c *Canvas) set(x, y int, r rune, fg, bg string) {
	c.put(x, y, cell{r: r, fg: fg, bg: bg})
}

func (c *Canvas) put(x, y int, cl cell) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	if c.clip != nil && !c.clip.contains(x, y) {
		return
	}
	c.cells[y*c.Width+x] = cl
}

type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && y >= r.y && x < r.x+r.w && y < r.y+r.h
}

func (r rect) intersect(o rect) rect {
	x, y := max(r.x, o.x), max(r.y, o.y)
	right, bottom := min(r.x+r.w, o.x+o.w), min(r.y+r.h, o.y+o.h)
	return rect{x, y, max(right-x, 0), max(bottom-y, 0)}
}

func (c *Canvas) draw(v *View, ox, oy float32, fg, bg string) {
	f := v.frame
	x, y := ox+f.X, oy+f.Y
	area := rect{round(x), round(y), round(f.Width), round(f.Height)}

	if v.Color != "" {
		fg = v.Color
	}
	if v.Background != "" {
		bg = v.Background
		for row := area.y; row < area.y+area.h; row++ {
			for col := area.x; col < area.x+area.w; col++ {
				c.set(col, row, ' ', fg, bg)
			}
		}
	}

	inner := area
	if v.bordered() && area.w >= 2 && area.h >= 2 {
		bfg := fg
		if v.BorderColor != "" {
			bfg = v.BorderColor
		}
		c.border(area, borders[v.border()], bfg, bg)
		inner = rect{area.x + 1, area.y + 1, area.w - 2, area.h - 2}
	}

	if v.Kind != "image" {
		c.text(inner, v.lines(max(inner.w, 1)), fg, bg, positions[v.Align], v.rowsPerLine())
	}

	// a scroll view shows only the part of its content inside it
	if v.Kind == "scroll" {
		saved := c.clip
		clip := inner
		if saved != nil {
			clip = saved.intersect(inner)
		}
		c.clip = &clip
		defer func() { c.clip = saved }()
	}
	for _, child := range v.children {
		c.draw(child, x, y, fg, bg)
	}
}

var positions = map[props.Align]lipgloss.Position{
	props.AlignStart:  lipgloss.Left,
	props.AlignCenter: lipgloss.Center,
	props.AlignEnd:    lipgloss.Right,
}

func (c *Canvas) border(r rect, b lipgloss.Border, fg, bg string) {
	right, bottom := r.x+r.w-1, r.y+r.h-1
	for col := r.x + 1; col < right; col++ {
		c.set(col, r.y, first(b.Top), fg, bg)
		c.set(col, bottom, first(b.Bottom), fg, bg)
	}
	for row := r.y + 1; row < bottom; row++ {
		c.set(r.x, row, first(b.Left), fg, bg)
		c.set(right, row, first(b.Right), fg, bg)
	}
	c.set(r.x, r.y, first(b.TopLeft), fg, bg)
	c.set(right, r.y, first(b.TopRight), fg, bg)
	c.set(r.x, bottom, first(b.BottomLeft), fg, bg)
	c.set(right, bottom, first(b.BottomRight), fg, bg)
}

// text writes lines into r every step rows, aligned by pos and clipped at
// r's edges. A double-width rune that does not fit is dropped.
func (c *Canvas) text(r rect, lines []string, fg, bg string, pos lipgloss.Position, step int) {
	for i, line := range lines {
		row := r.y + i*step
		if row >= r.y+r.h {
			return
		}
		col := r.x
		if free := r.w - runewidth.StringWidth(line); free > 0 {
			col += int(float64(free) * float64(pos))
		}
		for _, ch := range line {
			w := runewidth.RuneWidth(ch)
			if w == 0 {
				continue
			}
			if !r.contains(col+w-1, row) {
				break
			}
			c.set(col, row, ch, fg, bg)
			if w == 2 {
				c.put(col+1, row, cell{fg: fg, bg: bg, wide: true})
			}
			col += w
		}
	}
}

// Plain returns the canvas text without styling, one line per row with
// trailing blanks trimmed.
func (c *Canvas) Plain() string {
	rows := make([]string, c.Height)
	for y := range rows {
		var b strings.Builder
		for _, cl := range c.row(y) {
			if !cl.wide {
				b.WriteRune(cl.r)
			}
		}
		rows[y] = strings.TrimRight(b.String(), " ")
	}
	return strings.Join(rows, "\n")
}

// String renders the canvas with lipgloss colors. Runs of cells sharing a
// style are rendered together.
func (c *Canvas) String() string {
	rows := make([]string, c.Height)
	for y := range rows {
		var b strings.Builder
		cells := c.row(y)
		for start := 0; start < len(cells); {
			end := start
			var run strings.Builder
			for end < len(cells) && cells[end].fg == cells[start].fg && cells[end].bg == cells[start].bg {
				if !cells[end].wide {
					run.WriteRune(cells[end].r)
				}
				end++
			}
			b.WriteString(styleFor(cells[start].fg, cells[start].bg).Render(run.String()))
			start = end
		}
		rows[y] = b.String()
	}
	return strings.Join(rows, "\n")
}

func (c *Canvas) row(y int) []cell {
	return c.cells[y*c.Width : (y+1)*c.Width]
}

func styleFor(fg, bg string) lipgloss.Style {
	s := lipgloss.NewStyle()
	if fg != "" {
		s = s.Foreground(lipgloss.Color(fg))
	}
	if bg != "" {
		s = s.Background(lipgloss.Color(bg))
	}
	return s
}

func first(s string) rune {
	for _, r := range s {
		return r
	}
	return ' '
}

func round(v float32) int {
	if shardruntime.IsUnbounded(v) {
		return 0
	}
	return int(math.Round(float64(v)))
}
