package testbed

import (
	stderrors "errors"
	"testing"

	shardruntime "github.com/wippyai/shard-runtime"
)

func TestHost_Records(t *testing.T) {
	h := NewHost().Allow("box", "text").SetSize("text", shardruntime.Size{Width: 40, Height: 20})

	box, err := h.CreateView("ctx", "box")
	if err != nil {
		t.Fatal(err)
	}
	text, err := h.CreateView(nil, "text")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.CreateView(nil, "slider"); err == nil {
		t.Fatal("kinds outside Allow must be rejected")
	}

	box.SetProp("color", "red")
	box.AddChild(text)
	text.SetFrame(shardruntime.Frame{Width: 40, Height: 20})
	size, err := text.Measure(shardruntime.Size{Width: 30, Height: shardruntime.Unbounded})
	if err != nil {
		t.Fatal(err)
	}
	if size != (shardruntime.Size{Width: 30, Height: 20}) {
		t.Fatalf("Measure = %+v", size)
	}

	want := "create_view(box)\ncreate_view(text)\ncreate_view(slider)\n" +
		"set_prop(1,color,red)\nadd_child(1,2)\nset_frame(2,0,0,40,20)\nmeasure(2)"
	if got := h.Trace(); got != want {
		t.Fatalf("Trace =\n%s\nwant\n%s", got, want)
	}
	if len(h.CallsOf(OpCreateView)) != 3 || h.Contexts()[0] != "ctx" {
		t.Fatal("create calls or contexts not recorded")
	}
	if v := h.View(1); v.Props[0] != "color=red" || v.Children[0].ID != 2 {
		t.Fatalf("view 1 = %+v", v)
	}
	if h.View(0) != nil || h.View(3) != nil {
		t.Fatal("View out of range must be nil")
	}
}

func TestHost_Faults(t *testing.T) {
	h := NewHost().FailAfter(OpSetProp, "box", 1).Fail(OpCreateView, "image")

	v, _ := h.CreateView(nil, "box")
	if err := v.SetProp("a", "1"); err != nil {
		t.Fatalf("first set_prop = %v", err)
	}
	if err := v.SetProp("b", "2"); !stderrors.Is(err, ErrInjected) {
		t.Fatalf("second set_prop = %v", err)
	}
	if err := v.SetProp("c", "3"); err != nil {
		t.Fatalf("fault must fire once, got %v", err)
	}
	if _, err := h.CreateView(nil, "image"); !stderrors.Is(err, ErrInjected) {
		t.Fatalf("create image = %v", err)
	}

	h.Panic(OpMeasure, "")
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("measure must panic")
			}
		}()
		v.Measure(shardruntime.UnboundedSize())
	}()
}

func TestHost_Release(t *testing.T) {
	h := NewHost()
	v, _ := h.CreateView(nil, "box")
	r := v.(shardruntime.Releaser)

	if err := r.Release(); err != nil {
		t.Fatal(err)
	}
	if h.Live() != 0 || h.Released() != 1 {
		t.Fatalf("Live=%d Released=%d", h.Live(), h.Released())
	}
	if err := v.SetProp("a", "b"); err == nil {
		t.Fatal("released view must reject calls")
	}
	r.Release()
	if len(h.OverReleased()) != 1 {
		t.Fatal("double release not reported")
	}

	h.Reset()
	if len(h.Calls()) != 0 || h.Created() != 1 {
		t.Fatal("Reset must keep views and drop calls")
	}
}
