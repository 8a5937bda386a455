// Package props decodes the structured view props shared by the stock hosts:
// colors, dimensions, text spans and the enumerated style keywords.
//
// Values arrive the way the engine hands them to SetProp: JSON strings as
// their raw text, every other JSON value as compact JSON.
package props

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Prop keys understood by the stock hosts.
const (
	BackgroundColor = "background-color"
	BorderColor     = "border-color"
	BorderWidth     = "border-width"
	BorderRadius    = "border-radius"
	ContentMode     = "content-mode"
	MaxLines        = "max-lines"
	TextAlign       = "text-align"
	LineHeight      = "line-height"
	Direction       = "direction"
	Span            = "span"
)

// Color is a view color with an optional pressed state.
type Color struct {
	Default color.NRGBA
	Pressed *color.NRGBA
}

// ParseColor reads "#rgb", "#rrggbb", "#aarrggbb" or an object
// {"default": ..., "pressed": ...} holding those forms.
func ParseColor(value string) (Color, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "{") {
		c, err := parseHex(value)
		return Color{Default: c}, err
	}

	var obj struct {
		Default *string `json:"default"`
		Pressed *string `json:"pressed"`
	}
	if err := json.Unmarshal([]byte(value), &obj); err != nil {
		return Color{}, fmt.Errorf("color %s: %w", value, err)
	}
	if obj.Default == nil {
		return Color{}, fmt.Errorf("color %s has no default", value)
	}
	c, err := parseHex(*obj.Default)
	if err != nil {
		return Color{}, err
	}
	out := Color{Default: c}
	if obj.Pressed != nil {
		p, err := parseHex(*obj.Pressed)
		if err != nil {
			return Color{}, err
		}
		out.Pressed = &p
	}
	return out, nil
}

func parseHex(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	switch len(hex) {
	case 3:
		hex = "ff" + string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
		hex = "ff" + hex
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("unexpected value for color: %q", s)
	}
	argb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("unexpected value for color: %q", s)
	}
	return color.NRGBA{
		A: uint8(argb >> 24),
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
	}, nil
}

// Hex formats c as #rrggbb, dropping alpha.
func Hex(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS formats c as #rrggbb when opaque and rgba() otherwise.
func CSS(c color.NRGBA) string {
	if c.A == 0xff {
		return Hex(c)
	}
	a := strconv.FormatFloat(float64(c.A)/255, 'f', 3, 64)
	a = strings.TrimRight(strings.TrimRight(a, "0"), ".")
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, a)
}

// ParseDimension reads a plain number or {"value": n, "unit": "points"|"pixels"}.
// One pixel is one point; the hosts have no screen scale.
func ParseDimension(value string) (float32, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "{") {
		f, err := strconv.ParseFloat(value, 32)
		if err != nil || f < 0 || math.IsInf(f, 0) {
			return 0, fmt.Errorf("unexpected value for dimension: %q", value)
		}
		return float32(f), nil
	}

	var dim struct {
		Value *float64 `json:"value"`
		Unit  string   `json:"unit"`
	}
	if err := json.Unmarshal([]byte(value), &dim); err != nil {
		return 0, fmt.Errorf("dimension %s: %w", value, err)
	}
	if dim.Value == nil || *dim.Value < 0 {
		return 0, fmt.Errorf("unexpected value for dimension: %s", value)
	}
	switch dim.Unit {
	case "points", "pixels":
		return float32(*dim.Value), nil
	default:
		return 0, fmt.Errorf("unexpected unit: %q", dim.Unit)
	}
}

// ParseRadius is ParseDimension plus "max", which rounds the short side
// fully and is returned as +Inf.
func ParseRadius(value string) (float32, error) {
	if strings.TrimSpace(value) == "max" {
		return float32(math.Inf(1)), nil
	}
	return ParseDimension(value)
}

// ParseMaxLines reads a line count. Zero and negative counts mean no limit
// and are returned as 0.
func ParseMaxLines(value string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected value for max-lines: %q", value)
	}
	return max(int(f), 0), nil
}

// ParseLineHeight reads a line height multiple, either a number or an
// object {"value": n}.
func ParseLineHeight(value string) (float32, error) {
	value = strings.TrimSpace(value)
	var f float64
	if strings.HasPrefix(value, "{") {
		var obj struct {
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal([]byte(value), &obj); err != nil || obj.Value == nil {
			return 0, fmt.Errorf("unexpected value for line-height: %s", value)
		}
		f = *obj.Value
	} else {
		var err error
		if f, err = strconv.ParseFloat(value, 64); err != nil {
			return 0, fmt.Errorf("unexpected value for line-height: %q", value)
		}
	}
	if f <= 0 || math.IsInf(f, 0) {
		return 0, fmt.Errorf("line-height %v must be positive", f)
	}
	return float32(f), nil
}

// Align is a horizontal text alignment.
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

// ParseAlign reads start, center or end. Unknown values fall back to start.
func ParseAlign(value string) Align {
	switch value {
	case "center":
		return AlignCenter
	case "end":
		return AlignEnd
	default:
		return AlignStart
	}
}

// Mode is how an image fills its frame.
type Mode int

const (
	ModeCenter Mode = iota
	ModeCover
	ModeContain
)

// ParseMode reads cover, contain or center. Unknown values fall back to
// center.
func ParseMode(value string) Mode {
	switch value {
	case "cover":
		return ModeCover
	case "contain":
		return ModeContain
	default:
		return ModeCenter
	}
}

// Axis is a scroll direction.
type Axis int

const (
	Vertical Axis = iota
	Horizontal
)

// ParseAxis reads vertical or horizontal. Unknown values fall back to
// vertical.
func ParseAxis(value string) Axis {
	if value == "horizontal" {
		return Horizontal
	}
	return Vertical
}

// TextSpan is a flattened styled text run. Nested spans contribute their
// text; styles come from the outermost span.
type TextSpan struct {
	Text     string
	Color    *Color
	FontSize float32
	Bold     bool
	Italic   bool
}

type rawSpan struct {
	Text       json.RawMessage `json:"text"`
	FontColor  json.RawMessage `json:"font-color"`
	FontSize   json.RawMessage `json:"font-size"`
	FontWeight *string         `json:"font-weight"`
	FontStyle  *string         `json:"font-style"`
}

// ParseSpan reads a span object whose text is a string or an array of
// spans.
func ParseSpan(value string) (TextSpan, error) {
	var raw rawSpan
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return TextSpan{}, fmt.Errorf("span: %w", err)
	}

	text, err := spanText(raw.Text)
	if err != nil {
		return TextSpan{}, err
	}
	out := TextSpan{Text: text}

	if s, ok := rawString(raw.FontColor); ok {
		c, err := ParseColor(s)
		if err != nil {
			return TextSpan{}, err
		}
		out.Color = &c
	} else if len(raw.FontColor) > 0 && raw.FontColor[0] == '{' {
		c, err := ParseColor(string(raw.FontColor))
		if err != nil {
			return TextSpan{}, err
		}
		out.Color = &c
	}
	if len(raw.FontSize) > 0 && string(raw.FontSize) != "null" {
		if out.FontSize, err = ParseDimension(string(raw.FontSize)); err != nil {
			return TextSpan{}, err
		}
	}
	if raw.FontWeight != nil {
		switch *raw.FontWeight {
		case "bold":
			out.Bold = true
		case "regular":
		default:
			return TextSpan{}, fmt.Errorf("unexpected value for font-weight: %q", *raw.FontWeight)
		}
	}
	if raw.FontStyle != nil {
		switch *raw.FontStyle {
		case "italic":
			out.Italic = true
		case "normal":
		default:
			return TextSpan{}, fmt.Errorf("unexpected value for font-style: %q", *raw.FontStyle)
		}
	}
	return out, nil
}

func spanText(raw json.RawMessage) (string, error) {
	if s, ok := rawString(raw); ok {
		return s, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("unexpected value for text: %s", raw)
	}
	var b strings.Builder
	for _, p := range parts {
		var child rawSpan
		if err := json.Unmarshal(p, &child); err != nil {
			return "", fmt.Errorf("span: %w", err)
		}
		s, err := spanText(child.Text)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
