package termview

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/errors"
	"github.com/wippyai/shard-runtime/host/props"
)

// View is a rectangle of cells. Recognized props: value/text, span, color,
// background and background-color, border (none, normal, rounded, thick,
// double), border-color, border-width, border-radius, max-lines,
// text-align, line-height, content-mode, direction and, for images, width
// and height in cells. Other props are kept but not drawn.
type View struct {
	host        *Host
	Kind        string
	Text        string
	Color       string
	Background  string
	Border      string
	BorderColor string
	BorderWidth float32
	Radius      float32
	MaxLines    int
	LineHeight  float32
	Align       props.Align
	Mode        props.Mode
	Direction   props.Axis
	Props       map[string]string
	frame       shardruntime.Frame
	parent      *View
	children    []*View
	released    bool
}

func (v *View) check() error {
	if v.released {
		return errors.Released(v.Kind + " view")
	}
	return nil
}

// Frame returns the last frame applied.
func (v *View) Frame() shardruntime.Frame {
	return v.frame
}

// Children returns the attached child views in order.
func (v *View) Children() []*View {
	return append([]*View(nil), v.children...)
}

// Released reports whether Release was called.
func (v *View) Released() bool {
	return v.released
}

// SetFrame implements shardruntime.View.
func (v *View) SetFrame(f shardruntime.Frame) error {
	if err := v.check(); err != nil {
		return err
	}
	v.frame = f
	return nil
}

// SetProp implements shardruntime.View.
func (v *View) SetProp(key, value string) error {
	if err := v.check(); err != nil {
		return err
	}
	switch key {
	case "value", "text":
		v.Text = value
	case "color":
		v.Color = value
	case "background":
		v.Background = value
	case "border":
		if _, ok := borders[value]; !ok {
			return fmt.Errorf("unknown border %q", value)
		}
		v.Border = value
	case props.BackgroundColor, props.BorderColor, props.BorderWidth, props.BorderRadius,
		props.MaxLines, props.TextAlign, props.LineHeight, props.ContentMode,
		props.Direction, props.Span:
		if err := v.setStyleProp(key, value); err != nil {
			return fmt.Errorf("%s on %s view: %w", key, v.Kind, err)
		}
	case "":
		return fmt.Errorf("empty prop key on %s view", v.Kind)
	default:
		if v.Props == nil {
			v.Props = make(map[string]string)
		}
		v.Props[key] = value
	}
	return nil
}

// AddChild implements shardruntime.View.
func (v *View) AddChild(child shardruntime.View) error {
	if err := v.check(); err != nil {
		return err
	}
	c, ok := child.(*View)
	if !ok || c.host != v.host {
		return fmt.Errorf("child %T does not belong to this host", child)
	}
	if c.released {
		return errors.Released(c.Kind + " view")
	}
	if c.parent != nil {
		return fmt.Errorf("%s view is already attached", c.Kind)
	}
	c.parent = v
	v.children = append(v.children, c)
	return nil
}

// Measure implements shardruntime.View. Sizes are whole cells.
func (v *View) Measure(c shardruntime.Size) (shardruntime.Size, error) {
	if err := v.check(); err != nil {
		return shardruntime.Size{}, err
	}

	inset := 0
	if v.bordered() {
		inset = 2
	}

	if fillKinds[v.Kind] {
		return fill(c), nil
	}

	var w, h int
	if v.Kind == "image" {
		w, h = v.cells("width"), v.cells("height")
	} else {
		limit := -1
		if !shardruntime.IsUnbounded(c.Width) {
			limit = max(int(c.Width)-inset, 1)
		}
		lines := v.lines(limit)
		for _, line := range lines {
			w = max(w, runewidth.StringWidth(line))
		}
		h = len(lines) * v.rowsPerLine()
	}
	if w > 0 || h > 0 || inset > 0 {
		w += inset
		h += inset
	}
	return shardruntime.Size{Width: float32(w), Height: float32(h)}.Constrain(c), nil
}

// Release implements shardruntime.Releaser.
func (v *View) Release() error {
	if err := v.check(); err != nil {
		return err
	}
	if p := v.parent; p != nil {
		for i, c := range p.children {
			if c == v {
				p.children = append(p.children[:i], p.children[i+1:]...)
				break
			}
		}
		v.parent = nil
	}
	v.released = true
	v.host.live--
	return nil
}

// border returns the border style to draw. An explicit border wins;
// otherwise a positive border-width draws rounded when border-radius is
// set, thick from width 3 and normal below.
func (v *View) border() string {
	switch {
	case v.Border != "":
		return v.Border
	case v.BorderWidth <= 0:
		return ""
	case v.Radius > 0:
		return "rounded"
	case v.BorderWidth >= 3:
		return "thick"
	default:
		return "normal"
	}
}

func (v *View) bordered() bool {
	b := v.border()
	return b != "" && b != "none"
}

// lines wraps the view's content at limit and applies max-lines.
func (v *View) lines(limit int) []string {
	lines := wrap(v.content(), limit)
	if v.MaxLines > 0 && len(lines) > v.MaxLines {
		lines = lines[:v.MaxLines]
	}
	return lines
}

// rowsPerLine is the line height in whole rows.
func (v *View) rowsPerLine() int {
	return max(int(math.Round(float64(v.LineHeight))), 1)
}

func (v *View) setStyleProp(key, value string) error {
	switch key {
	case props.BackgroundColor:
		c, err := props.ParseColor(value)
		if err != nil {
			return err
		}
		v.Background = ""
		if c.Default.A > 0 {
			v.Background = props.Hex(c.Default)
		}
	case props.BorderColor:
		c, err := props.ParseColor(value)
		if err != nil {
			return err
		}
		v.BorderColor = props.Hex(c.Default)
	case props.BorderWidth:
		w, err := props.ParseDimension(value)
		if err != nil {
			return err
		}
		v.BorderWidth = w
	case props.BorderRadius:
		r, err := props.ParseRadius(value)
		if err != nil {
			return err
		}
		v.Radius = r
	case props.MaxLines:
		n, err := props.ParseMaxLines(value)
		if err != nil {
			return err
		}
		v.MaxLines = n
	case props.LineHeight:
		m, err := props.ParseLineHeight(value)
		if err != nil {
			return err
		}
		v.LineHeight = m
	case props.TextAlign:
		v.Align = props.ParseAlign(value)
	case props.ContentMode:
		v.Mode = props.ParseMode(value)
	case props.Direction:
		v.Direction = props.ParseAxis(value)
	case props.Span:
		span, err := props.ParseSpan(value)
		if err != nil {
			return err
		}
		v.Text = span.Text
		if span.Color != nil {
			v.Color = props.Hex(span.Color.Default)
		}
	}
	return nil
}

func fill(c shardruntime.Size) shardruntime.Size {
	var s shardruntime.Size
	if !shardruntime.IsUnbounded(c.Width) {
		s.Width = float32(math.Floor(float64(c.Width)))
	}
	if !shardruntime.IsUnbounded(c.Height) {
		s.Height = float32(math.Floor(float64(c.Height)))
	}
	return s
}

// content is the text drawn inside the view.
func (v *View) content() string {
	if v.Kind == "button" {
		return "[" + v.Text + "]"
	}
	return v.Text
}

func (v *View) cells(key string) int {
	n, err := strconv.Atoi(v.Props[key])
	if err != nil || n < 0 {
		return 0
	}
	return n
}

var borders = map[string]lipgloss.Border{
	"none":    {},
	"normal":  lipgloss.NormalBorder(),
	"rounded": lipgloss.RoundedBorder(),
	"thick":   lipgloss.ThickBorder(),
	"double":  lipgloss.DoubleBorder(),
}

// wrap breaks s into lines of at most limit columns, preferring word
// boundaries. A negative limit only splits on newlines.
func wrap(s string, limit int) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, para := range strings.Split(s, "\n") {
		if limit < 0 {
			out = append(out, para)
			continue
		}
		start := len(out)
		var line string
		for _, word := range strings.Fields(para) {
			for runewidth.StringWidth(word) > limit {
				if line != "" {
					out = append(out, line)
					line = ""
				}
				head := runewidth.Truncate(word, limit, "")
				if head == "" {
					// a wide rune in a one-column limit
					_, size := utf8.DecodeRuneInString(word)
					head = word[:size]
				}
				out = append(out, head)
				word = word[len(head):]
			}
			switch {
			case word == "":
			case line == "":
				line = word
			case runewidth.StringWidth(line)+1+runewidth.StringWidth(word) <= limit:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" || len(out) == start {
			out = append(out, line)
		}
	}
	return out
}
