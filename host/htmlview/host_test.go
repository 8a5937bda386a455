package htmlview

import (
	"bytes"
	stderrors "errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	shardruntime "github.com/wippyai/shard-runtime"
	"github.com/wippyai/shard-runtime/engine"
	"github.com/wippyai/shard-runtime/errors"
)

func create(t *testing.T, h *Host, kind string) *View {
	t.Helper()
	v, err := h.CreateView(nil, kind)
	if err != nil {
		t.Fatalf("CreateView(%q) failed: %v", kind, err)
	}
	return v.(*View)
}

func TestHost_RenderScenario(t *testing.T) {
	h := NewHost()
	m := engine.NewViewManager(h)

	root, err := m.Render(nil, []byte(`{"type":"box","props":{"color":"red"},"children":[{"type":"text","props":{"value":"hi"}}]}`))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if got := root.Size(); got != (shardruntime.Size{Width: 14, Height: 13}) {
		t.Fatalf("Size = %+v", got)
	}

	var buf bytes.Buffer
	if err := Render(&buf, root.View()); err != nil {
		t.Fatal(err)
	}
	want := `<div style="position:absolute;left:0px;top:0px;width:14px;height:13px;color:red">` +
		`<span style="position:absolute;left:0px;top:0px;width:14px;height:13px">hi</span></div>`
	if buf.String() != want {
		t.Fatalf("html =\n%s\nwant\n%s", buf.String(), want)
	}

	if h.Live() != 2 {
		t.Fatalf("Live = %d", h.Live())
	}
	if err := root.Free(); err != nil {
		t.Fatal(err)
	}
	if h.Live() != 0 {
		t.Fatalf("Live after free = %d", h.Live())
	}
}

func TestHost_UnregisteredKind(t *testing.T) {
	h := NewHost()
	if _, err := h.CreateView(nil, "slider"); err == nil {
		t.Fatal("unregistered kind must be rejected")
	}

	h.Register("slider", "input")
	v := create(t, h, "slider")
	if v.Node.Data != "input" {
		t.Fatalf("tag = %q", v.Node.Data)
	}
	if kinds := h.Kinds(); len(kinds) != 8 || kinds[0] != "box" {
		t.Fatalf("Kinds = %v", kinds)
	}
}

func TestView_SetProp(t *testing.T) {
	tests := []struct {
		kind, key, value string
		attr, want       string
	}{
		{"box", "class", "card", "class", "card"},
		{"box", "id", "main", "id", "main"},
		{"box", "background", "#fff", "style", "background-color:#fff"},
		{"box", "role", "banner", "data-role", "banner"},
		{"box", "meta", `{"a":1}`, "data-meta", `{"a":1}`},
		{"image", "value", "logo", "alt", "logo"},
		{"image", "src", "a.png", "src", "a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := create(t, NewHost(), tt.kind)
			if err := v.SetProp(tt.key, tt.value); err != nil {
				t.Fatal(err)
			}
			if got, ok := v.Attr(tt.attr); !ok || got != tt.want {
				t.Fatalf("%s = %q, want %q", tt.attr, got, tt.want)
			}
		})
	}
}

func TestView_TextReplaced(t *testing.T) {
	v := create(t, NewHost(), "button")
	v.SetProp("value", "Ok")
	v.SetProp("value", "Cancel")

	var buf bytes.Buffer
	if err := Render(&buf, v); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "<button>Cancel</button>" {
		t.Fatalf("html = %s", buf.String())
	}
}

func TestView_Measure(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		constraint shardruntime.Size
		want       shardruntime.Size
	}{
		{"empty", "", shardruntime.UnboundedSize(), shardruntime.Size{}},
		{"one line", "hello world", shardruntime.UnboundedSize(), shardruntime.Size{Width: 77, Height: 13}},
		{"wraps", "hello world", shardruntime.Size{Width: 40, Height: shardruntime.Unbounded}, shardruntime.Size{Width: 35, Height: 26}},
		{"newline", "a\nbb", shardruntime.UnboundedSize(), shardruntime.Size{Width: 14, Height: 26}},
		{"clamped", "hello world", shardruntime.Size{Width: 20, Height: 13}, shardruntime.Size{Width: 20, Height: 13}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := create(t, NewHost(), "text")
			if tt.text != "" {
				v.SetProp("text", tt.text)
			}
			got, err := v.Measure(tt.constraint)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("Measure = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestView_MeasureImage(t *testing.T) {
	v := create(t, NewHost(), "image")
	v.SetProp("width", "64")
	v.SetProp("height", "48")

	got, err := v.Measure(shardruntime.Size{Width: 32, Height: shardruntime.Unbounded})
	if err != nil {
		t.Fatal(err)
	}
	if got != (shardruntime.Size{Width: 32, Height: 48}) {
		t.Fatalf("Measure = %+v", got)
	}
}

func TestView_AddChild(t *testing.T) {
	h := NewHost()
	a, b, c := create(t, h, "box"), create(t, h, "box"), create(t, h, "text")

	if err := a.AddChild(c); err != nil {
		t.Fatal(err)
	}
	if err := b.AddChild(c); err == nil {
		t.Fatal("a view can have only one parent")
	}
	if err := a.AddChild(create(t, NewHost(), "text")); err == nil {
		t.Fatal("views from another host must be rejected")
	}
}

func TestView_Release(t *testing.T) {
	h := NewHost()
	parent, child := create(t, h, "box"), create(t, h, "text")
	parent.AddChild(child)

	if err := child.Release(); err != nil {
		t.Fatal(err)
	}
	if parent.Node.FirstChild != nil {
		t.Fatal("released view must be detached")
	}
	if err := child.Release(); !stderrors.Is(err, errors.Released("")) {
		t.Fatalf("second Release = %v", err)
	}
	if err := child.SetProp("value", "x"); err == nil {
		t.Fatal("released view must reject props")
	}
	if err := Render(&bytes.Buffer{}, child); err == nil {
		t.Fatal("released view must not render")
	}
}

func TestHost_Logging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := NewHost(WithLogger(zap.New(core)))
	create(t, h, "text")

	entries := logs.FilterMessage("html view created").All()
	if len(entries) != 1 || entries[0].ContextMap()["tag"] != "span" {
		t.Fatalf("logs = %v", logs.All())
	}
}

func TestRender_ForeignView(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, nil)
	if err == nil || !strings.Contains(err.Error(), "cannot render") {
		t.Fatalf("err = %v", err)
	}
}

const flexboxDoc = `{"root":{"kind":"flexbox",
	"props":{"background-color":"#fff","border-radius":{"unit":"points","value":4}},
	"layout":{"flex-direction":"column"},
	"children":[
		{"kind":"text","props":{"span":{"text":"Hello","font-color":"#f00"},"max-lines":1}},
		{"kind":"solid-color","props":{"background-color":"#00f"},"layout":{"height":2}},
		{"kind":"scroll","props":{"direction":"horizontal"},"layout":{"height":20}}
	]}}`

func TestHost_RenderFlexboxDocument(t *testing.T) {
	h := NewHost()
	m := engine.NewViewManager(h)

	root, err := m.Render(nil, []byte(flexboxDoc))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	defer root.Free()

	var buf bytes.Buffer
	if err := Render(&buf, root.View()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"background-color:#ffffff;border-radius:4px",
		"color:#ff0000",
		">Hello</span>",
		"-webkit-line-clamp:1",
		"background-color:#0000ff",
		"overflow-x:auto;overflow-y:hidden",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q:\n%s", want, out)
		}
	}
}

func TestView_StyleProps(t *testing.T) {
	tests := []struct {
		kind, key, value string
		want             string
	}{
		{"flexbox", "background-color", "#80ff0000", "background-color:rgba(255,0,0,0.502)"},
		{"flexbox", "border-color", `{"default":"#0f0"}`, "border-color:#00ff00"},
		{"flexbox", "border-width", `{"unit":"points","value":2}`, "border-style:solid;border-width:2px"},
		{"flexbox", "border-radius", "max", "border-radius:9999px"},
		{"image", "content-mode", "cover", "object-fit:cover"},
		{"image", "content-mode", "center", "object-fit:none"},
		{"text", "text-align", "end", "text-align:right"},
		{"text", "line-height", `{"value":1.5}`, "line-height:1.5"},
		{"scroll", "direction", "vertical", "overflow-x:hidden;overflow-y:auto"},
		{"text", "span", `{"text":"x","font-weight":"bold","font-style":"italic","font-size":12}`, "font-size:12px;font-weight:bold;font-style:italic"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			v := create(t, NewHost(), tt.kind)
			if err := v.SetProp(tt.key, tt.value); err != nil {
				t.Fatal(err)
			}
			if got, _ := v.Attr("style"); !strings.Contains(got, tt.want) {
				t.Fatalf("style = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestView_StylePropErrors(t *testing.T) {
	tests := []struct{ key, value string }{
		{"background-color", "red"},
		{"border-width", `{"unit":"em","value":1}`},
		{"max-lines", "all"},
		{"line-height", "0"},
		{"span", `{"text":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := create(t, NewHost(), "text")
			err := v.SetProp(tt.key, tt.value)
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Fatalf("SetProp(%s, %s) = %v", tt.key, tt.value, err)
			}
		})
	}
}

func TestView_MeasureFill(t *testing.T) {
	for _, kind := range []string{"flexbox", "scroll", "solid-color"} {
		v := create(t, NewHost(), kind)
		got, err := v.Measure(shardruntime.Size{Width: 50, Height: shardruntime.Unbounded})
		if err != nil {
			t.Fatal(err)
		}
		if got != (shardruntime.Size{Width: 50}) {
			t.Errorf("%s Measure = %+v", kind, got)
		}
	}
}

func TestView_MeasureTextStyle(t *testing.T) {
	v := create(t, NewHost(), "text")
	v.SetProp("text", "a\nb\nc")
	v.SetProp("max-lines", "2")
	v.SetProp("line-height", "2")

	got, err := v.Measure(shardruntime.UnboundedSize())
	if err != nil {
		t.Fatal(err)
	}
	if got != (shardruntime.Size{Width: 7, Height: 52}) {
		t.Fatalf("Measure = %+v", got)
	}
}
