package htmlview

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/net/html"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/errors"
	"github.com/wippyai/shard-runtime/host/props"
)

// attributes copied verbatim from props
var plainAttrs = map[string]bool{
	"class": true,
	"id":    true,
	"src":   true,
	"alt":   true,
	"href":  true,
	"title": true,
}

// View is one element node. Props named value or text become the element's
// text, and span sets styled text. color, background and the box and text
// style props become inline style, a handful of standard names become
// attributes and everything else lands in data-* attributes.
type View struct {
	host       *Host
	Kind       string
	Node       *html.Node
	text       *html.Node
	frame      shardruntime.Frame
	framed     bool
	styles     []style
	maxLines   int
	lineHeight float32
	released   bool
}

type style struct {
	name  string
	value string
}

func (v *View) check() error {
	if v.released {
		return errors.Released(v.Kind + " view")
	}
	return nil
}

// Text returns the view's own text content.
func (v *View) Text() string {
	if v.text == nil {
		return ""
	}
	return v.text.Data
}

// Attr returns the value of attribute key.
func (v *View) Attr(key string) (string, bool) {
	for _, a := range v.Node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Frame returns the last frame applied.
func (v *View) Frame() shardruntime.Frame {
	return v.frame
}

// SetFrame implements shardruntime.View.
func (v *View) SetFrame(f shardruntime.Frame) error {
	if err := v.check(); err != nil {
		return err
	}
	v.frame = f
	v.framed = true
	v.syncStyle()
	return nil
}

// SetProp implements shardruntime.View.
func (v *View) SetProp(key, value string) error {
	if err := v.check(); err != nil {
		return err
	}
	switch {
	case key == "value" || key == "text":
		if v.Node.Data == "img" {
			v.setAttr("alt", value)
			return nil
		}
		v.setText(value)
	case key == "color":
		v.setStyle("color", value)
	case key == "background":
		v.setStyle("background-color", value)
	case styleProps[key] != nil:
		if err := styleProps[key](v, value); err != nil {
			return fmt.Errorf("%s on %s view: %w", key, v.Kind, err)
		}
	case plainAttrs[key]:
		v.setAttr(key, value)
	case key == "":
		return fmt.Errorf("empty prop key on %s view", v.Kind)
	default:
		v.setAttr("data-"+key, value)
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
	if c.Node.Parent != nil {
		return fmt.Errorf("%s view is already attached", c.Kind)
	}
	v.Node.AppendChild(c.Node)
	return nil
}

// Measure implements shardruntime.View. Text wraps at word boundaries when
// the width is bounded. Images use their width and height props.
func (v *View) Measure(c shardruntime.Size) (shardruntime.Size, error) {
	if err := v.check(); err != nil {
		return shardruntime.Size{}, err
	}
	if fillKinds[v.Kind] {
		return fill(c), nil
	}
	if v.Node.Data == "img" {
		w, _ := v.numberAttr("data-width")
		h, _ := v.numberAttr("data-height")
		return shardruntime.Size{Width: w, Height: h}.Constrain(c), nil
	}
	return measureText(v.host.face, v.Text(), c.Width, v.maxLines, v.lineHeight).Constrain(c), nil
}

func fill(c shardruntime.Size) shardruntime.Size {
	var s shardruntime.Size
	if !shardruntime.IsUnbounded(c.Width) {
		s.Width = c.Width
	}
	if !shardruntime.IsUnbounded(c.Height) {
		s.Height = c.Height
	}
	return s
}

// Release implements shardruntime.Releaser by detaching the node.
func (v *View) Release() error {
	if err := v.check(); err != nil {
		return err
	}
	if v.Node.Parent != nil {
		v.Node.Parent.RemoveChild(v.Node)
	}
	v.released = true
	v.host.live--
	return nil
}

// Released reports whether Release was called.
func (v *View) Released() bool {
	return v.released
}

func (v *View) setText(s string) {
	if v.text == nil {
		v.text = &html.Node{Type: html.TextNode}
		if first := v.Node.FirstChild; first != nil {
			v.Node.InsertBefore(v.text, first)
		} else {
			v.Node.AppendChild(v.text)
		}
	}
	v.text.Data = s
}

func (v *View) setAttr(key, value string) {
	for i := range v.Node.Attr {
		if v.Node.Attr[i].Key == key {
			v.Node.Attr[i].Val = value
			return
		}
	}
	v.Node.Attr = append(v.Node.Attr, html.Attribute{Key: key, Val: value})
}

func (v *View) setStyle(name, value string) {
	for i := range v.styles {
		if v.styles[i].name == name {
			v.styles[i].value = value
			v.syncStyle()
			return
		}
	}
	v.styles = append(v.styles, style{name: name, value: value})
	v.syncStyle()
}

func (v *View) syncStyle() {
	var parts []string
	if v.framed {
		f := v.frame
		parts = append(parts,
			"position:absolute",
			"left:"+px(f.X),
			"top:"+px(f.Y),
			"width:"+px(f.Width),
			"height:"+px(f.Height),
		)
	}
	for _, s := range v.styles {
		parts = append(parts, s.name+":"+s.value)
	}
	v.setAttr("style", strings.Join(parts, ";"))
}

func (v *View) numberAttr(key string) (float32, bool) {
	s, ok := v.Attr(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 32)
	if err != nil || f < 0 {
		return 0, false
	}
	return float32(f), true
}

func px(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32) + "px"
}

// measureText lays s out in lines no wider than maxWidth (unless a single
// word is wider) and returns the bounding size. maxLines > 0 caps the line
// count; spacing multiplies the face's line height.
func measureText(face font.Face, s string, maxWidth float32, maxLines int, spacing float32) shardruntime.Size {
	if s == "" {
		return shardruntime.Size{}
	}
	lineHeight := float32(face.Metrics().Height.Ceil()) * spacing
	space := float32(font.MeasureString(face, " ").Ceil())

	var width, line float32
	lines := 0
	for _, para := range strings.Split(s, "\n") {
		lines++
		line = 0
		for _, word := range strings.Fields(para) {
			w := float32(font.MeasureString(face, word).Ceil())
			switch {
			case line == 0:
				line = w
			case shardruntime.IsUnbounded(maxWidth) || line+space+w <= maxWidth:
				line += space + w
			default:
				width = max(width, line)
				lines++
				line = w
			}
		}
		width = max(width, line)
	}
	if maxLines > 0 {
		lines = min(lines, maxLines)
	}
	return shardruntime.Size{Width: width, Height: float32(math.Ceil(float64(float32(lines) * lineHeight)))}
}

// styleProps apply the structured box and text props as inline style.
var styleProps = map[string]func(v *View, value string) error{
	props.BackgroundColor: func(v *View, value string) error {
		c, err := props.ParseColor(value)
		if err != nil {
			return err
		}
		v.setStyle("background-color", props.CSS(c.Default))
		if c.Pressed != nil {
			v.setAttr("data-pressed-background", props.CSS(*c.Pressed))
		}
		return nil
	},
	props.BorderColor: func(v *View, value string) error {
		c, err := props.ParseColor(value)
		if err != nil {
			return err
		}
		v.setStyle("border-color", props.CSS(c.Default))
		return nil
	},
	props.BorderWidth: func(v *View, value string) error {
		w, err := props.ParseDimension(value)
		if err != nil {
			return err
		}
		v.setStyle("border-style", "solid")
		v.setStyle("border-width", px(w))
		return nil
	},
	props.BorderRadius: func(v *View, value string) error {
		r, err := props.ParseRadius(value)
		if err != nil {
			return err
		}
		if math.IsInf(float64(r), 1) {
			v.setStyle("border-radius", "9999px")
		} else {
			v.setStyle("border-radius", px(r))
		}
		return nil
	},
	props.ContentMode: func(v *View, value string) error {
		fit := map[props.Mode]string{
			props.ModeCenter:  "none",
			props.ModeCover:   "cover",
			props.ModeContain: "contain",
		}
		v.setStyle("object-fit", fit[props.ParseMode(value)])
		return nil
	},
	props.MaxLines: func(v *View, value string) error {
		n, err := props.ParseMaxLines(value)
		if err != nil {
			return err
		}
		v.maxLines = n
		if n == 0 {
			v.setStyle("-webkit-line-clamp", "none")
			return nil
		}
		v.setStyle("display", "-webkit-box")
		v.setStyle("-webkit-box-orient", "vertical")
		v.setStyle("overflow", "hidden")
		v.setStyle("-webkit-line-clamp", strconv.Itoa(n))
		return nil
	},
	props.TextAlign: func(v *View, value string) error {
		align := map[props.Align]string{
			props.AlignStart:  "left",
			props.AlignCenter: "center",
			props.AlignEnd:    "right",
		}
		v.setStyle("text-align", align[props.ParseAlign(value)])
		return nil
	},
	props.LineHeight: func(v *View, value string) error {
		m, err := props.ParseLineHeight(value)
		if err != nil {
			return err
		}
		v.lineHeight = m
		v.setStyle("line-height", strconv.FormatFloat(float64(m), 'f', -1, 32))
		return nil
	},
	props.Direction: func(v *View, value string) error {
		v.setDirection(props.ParseAxis(value))
		return nil
	},
	props.Span: func(v *View, value string) error {
		span, err := props.ParseSpan(value)
		if err != nil {
			return err
		}
		v.setText(span.Text)
		if span.Color != nil {
			v.setStyle("color", props.CSS(span.Color.Default))
		}
		if span.FontSize > 0 {
			v.setStyle("font-size", px(span.FontSize))
		}
		if span.Bold {
			v.setStyle("font-weight", "bold")
		}
		if span.Italic {
			v.setStyle("font-style", "italic")
		}
		return nil
	},
}

// setDirection makes the element scroll along axis only.
func (v *View) setDirection(axis props.Axis) {
	if axis == props.Horizontal {
		v.setStyle("overflow-x", "auto")
		v.setStyle("overflow-y", "hidden")
		return
	}
	v.setStyle("overflow-x", "hidden")
	v.setStyle("overflow-y", "auto")
}
