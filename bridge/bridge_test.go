package bridge

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	shardruntime "github.com/wippyai/shard-runtime"
)

// nativeHost is a fake platform: native views are strings, calls are logged.
type nativeHost struct {
	b        *Bridge
	calls    []string
	released map[string]int
	fail     map[string]string
	next     int
}

func newNativeHost(b *Bridge) *nativeHost {
	return &nativeHost{b: b, released: make(map[string]int), fail: make(map[string]string)}
}

func (h *nativeHost) check(op string, ref any, slot *ErrorSlot) bool {
	if msg, ok := h.fail[op+":"+ref.(string)]; ok {
		slot.Fail(msg)
		return false
	}
	return true
}

func (h *nativeHost) funcs() ViewFuncs {
	return ViewFuncs{
		SetFrame: func(ref any, x, y, w, hh float32, slot *ErrorSlot) {
			h.calls = append(h.calls, fmt.Sprintf("set_frame(%s,%g,%g,%g,%g)", ref, x, y, w, hh))
			h.check("set_frame", ref, slot)
		},
		SetProp: func(ref any, key, value string, slot *ErrorSlot) {
			h.calls = append(h.calls, fmt.Sprintf("set_prop(%s,%s,%s)", ref, key, value))
			h.check("set_prop", ref, slot)
		},
		AddChild: func(ref, child any, slot *ErrorSlot) {
			h.calls = append(h.calls, fmt.Sprintf("add_child(%s,%s)", ref, child))
			h.check("add_child", ref, slot)
		},
		Measure: func(ref any, c shardruntime.Size, slot *ErrorSlot) shardruntime.Size {
			if !h.check("measure", ref, slot) {
				return shardruntime.Size{}
			}
			return shardruntime.Size{Width: 30, Height: 10}.Constrain(c)
		},
		Release: func(ref any) {
			h.released[ref.(string)]++
		},
	}
}

func (h *nativeHost) create(hostRef, hostCtx any, kind string, slot *ErrorSlot) ViewHandle {
	h.calls = append(h.calls, "create_view("+kind+")")
	if msg, ok := h.fail["create_view:"+kind]; ok {
		slot.Fail(msg)
		return 0
	}
	h.next++
	return h.b.ViewNew(fmt.Sprintf("%s#%d", kind, h.next), h.funcs())
}

const doc = `{"type":"box","props":{"color":"red"},"children":[{"type":"text","props":{"value":"hi"}}]}`

func TestBridge_RenderScenario(t *testing.T) {
	b := New()
	host := newNativeHost(b)
	mgr := b.ViewManagerNew("surface", host.create)

	var slot ErrorSlot
	root := b.Render(mgr, nil, []byte(doc), &slot)
	if slot.Failed() {
		t.Fatalf("Render failed: %s", slot.Message())
	}
	if root == 0 {
		t.Fatal("expected a Root handle")
	}

	want := []string{
		"create_view(box)",
		"set_prop(box#1,color,red)",
		"create_view(text)",
		"set_prop(text#2,value,hi)",
		"add_child(box#1,text#2)",
		"set_frame(box#1,0,0,30,10)",
		"set_frame(text#2,0,0,30,10)",
	}
	if got := strings.Join(host.calls, "\n"); got != strings.Join(want, "\n") {
		t.Fatalf("calls:\n%s\nwant:\n%s", got, strings.Join(want, "\n"))
	}

	for i := 0; i < 3; i++ {
		if v := b.RootGetView(root); v != "box#1" {
			t.Fatalf("RootGetView = %v", v)
		}
	}

	if st := b.Stats(); st.Roots != 1 || st.Managers != 1 || st.PendingViews != 0 {
		t.Fatalf("stats = %+v", st)
	}

	b.RootFree(root)
	if host.released["box#1"] != 1 || host.released["text#2"] != 1 {
		t.Fatalf("released = %v", host.released)
	}
	if b.RootGetView(root) != nil {
		t.Fatal("freed root handle must not resolve")
	}
	b.ViewManagerFree(mgr)
	if st := b.Stats(); st != (Stats{}) {
		t.Fatalf("stats after free = %+v", st)
	}
}

func TestBridge_RenderFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		fail map[string]string
		want string
	}{
		{"malformed", `{"type":`, nil, "malformed"},
		{"factory failure", `{"type":"box","children":[{"type":"unknown"}]}`, map[string]string{"create_view:unknown": "no such view"}, "no such view"},
		{"set_prop failure", doc, map[string]string{"set_prop:text#2": "bad value"}, "bad value"},
		{"measure failure", doc, map[string]string{"measure:text#2": "font missing"}, "font missing"},
		{"empty host message", doc, map[string]string{"set_frame:box#1": ""}, "unknown native error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			host := newNativeHost(b)
			for k, v := range tt.fail {
				host.fail[k] = v
			}
			mgr := b.ViewManagerNew(nil, host.create)

			var slot ErrorSlot
			root := b.Render(mgr, nil, []byte(tt.doc), &slot)
			if root != 0 {
				t.Fatal("failed render must return 0")
			}
			if !slot.Failed() || !strings.Contains(slot.Message(), tt.want) {
				t.Fatalf("slot = %q, want it to contain %q", slot.Message(), tt.want)
			}
			for ref, n := range host.released {
				if n != 1 {
					t.Errorf("%s released %d times", ref, n)
				}
			}
			if len(host.released) != host.next {
				t.Errorf("released %d of %d views", len(host.released), host.next)
			}
			if st := b.Stats(); st.Roots != 0 || st.PendingViews != 0 {
				t.Errorf("stats = %+v", st)
			}
		})
	}
}

func TestBridge_InvalidHandles(t *testing.T) {
	b := New()
	host := newNativeHost(b)
	mgr := b.ViewManagerNew(nil, host.create)

	var slot ErrorSlot
	if h := b.Render(ManagerHandle(999), nil, []byte(doc), &slot); h != 0 || !slot.Failed() {
		t.Fatalf("Render on bad manager = %d, %q", h, slot.Message())
	}

	slot.Reset()
	root := b.Render(mgr, nil, []byte(doc), &slot)
	if slot.Failed() {
		t.Fatal(slot.Message())
	}

	// A root handle is not a manager handle.
	slot.Reset()
	if h := b.Render(ManagerHandle(root), nil, []byte(doc), &slot); h != 0 || !slot.Failed() {
		t.Fatal("mistyped handle must be rejected")
	}

	slot.Reset()
	b.RootMeasure(RootHandle(mgr), shardruntime.UnboundedSize(), &slot)
	if !strings.Contains(slot.Message(), "invalid root handle") {
		t.Fatalf("RootMeasure on manager handle = %q", slot.Message())
	}

	b.RootFree(root)
	slot.Reset()
	b.RootMeasure(root, shardruntime.UnboundedSize(), &slot)
	if !slot.Failed() {
		t.Fatal("RootMeasure on freed root must fail")
	}

	// Double free is detected and leaves views alone.
	b.RootFree(root)
	if host.released["box#1"] != 1 {
		t.Fatalf("box released %d times", host.released["box#1"])
	}
}

func TestBridge_RootMeasure(t *testing.T) {
	b := New()
	host := newNativeHost(b)
	mgr := b.ViewManagerNew(nil, host.create)

	var slot ErrorSlot
	root := b.Render(mgr, nil, []byte(doc), &slot)

	host.calls = nil
	b.RootMeasure(root, shardruntime.Size{Width: 100, Height: 50}, &slot)
	if slot.Failed() {
		t.Fatal(slot.Message())
	}
	want := []string{"set_frame(box#1,0,0,100,50)", "set_frame(text#2,0,0,30,50)"}
	if got := strings.Join(host.calls, "|"); got != strings.Join(want, "|") {
		t.Fatalf("calls = %s", got)
	}

	host.calls = nil
	b.RootMeasure(root, shardruntime.Size{Width: 100, Height: 50}, &slot)
	if len(host.calls) != 0 {
		t.Fatalf("repeat measure made calls: %v", host.calls)
	}

	host.fail["set_frame:box#1"] = "detached"
	b.RootMeasure(root, shardruntime.Size{Width: 10, Height: 10}, &slot)
	if !strings.Contains(slot.Message(), "detached") {
		t.Fatalf("slot = %q", slot.Message())
	}
}

func TestBridge_RootMeasureInvalidConstraint(t *testing.T) {
	b := New()
	host := newNativeHost(b)
	mgr := b.ViewManagerNew(nil, host.create)

	var slot ErrorSlot
	root := b.Render(mgr, nil, []byte(doc), &slot)
	defer b.RootFree(root)

	tests := []shardruntime.Size{
		{Width: -50, Height: -20},
		{Width: float32(math.Inf(1)), Height: 10},
	}
	for _, size := range tests {
		host.calls = nil
		b.RootMeasure(root, size, &slot)
		if !slot.Failed() || !strings.Contains(slot.Message(), "invalid_value") {
			t.Fatalf("measure %+v: slot = %q", size, slot.Message())
		}
		if len(host.calls) != 0 {
			t.Fatalf("measure %+v made calls: %v", size, host.calls)
		}
		slot.Reset()
	}
}

func TestBridge_ReentrantRootFree(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := New(WithLogger(zap.New(core)))
	host := newNativeHost(b)
	mgr := b.ViewManagerNew(nil, host.create)

	var slot ErrorSlot
	var root RootHandle
	funcs := host.funcs()
	setFrame := funcs.SetFrame
	funcs.SetFrame = func(ref any, x, y, w, h float32, slot *ErrorSlot) {
		if root != 0 {
			b.RootFree(root)
		}
		setFrame(ref, x, y, w, h, slot)
	}
	create := func(hostRef, hostCtx any, kind string, slot *ErrorSlot) ViewHandle {
		return b.ViewNew(kind, funcs)
	}
	mgr = b.ViewManagerNew(nil, create)

	root = b.Render(mgr, nil, []byte(doc), &slot)
	if slot.Failed() {
		t.Fatal(slot.Message())
	}

	b.RootMeasure(root, shardruntime.Size{Width: 5, Height: 5}, &slot)
	if slot.Failed() {
		t.Fatalf("RootMeasure failed: %s", slot.Message())
	}
	if logs.FilterMessage("root_free during a call on the same root").Len() == 0 {
		t.Fatalf("re-entrant free not refused: %v", logs.All())
	}
	if b.RootGetView(root) != "box" {
		t.Fatal("root must survive a refused free")
	}
	b.RootFree(root)
	if b.Stats().Roots != 0 {
		t.Fatal("root not freed")
	}
}

func TestBridge_OwnershipTransfer(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := New(WithLogger(zap.New(core)))
	host := newNativeHost(b)

	var handed []ViewHandle
	mgr := b.ViewManagerNew(nil, func(hostRef, hostCtx any, kind string, slot *ErrorSlot) ViewHandle {
		h := host.create(hostRef, hostCtx, kind, slot)
		handed = append(handed, h)
		return h
	})

	spare := b.ViewNew("spare", host.funcs())
	if b.Stats().PendingViews != 1 {
		t.Fatalf("pending = %d", b.Stats().PendingViews)
	}

	var slot ErrorSlot
	root := b.Render(mgr, nil, []byte(doc), &slot)
	if slot.Failed() {
		t.Fatal(slot.Message())
	}
	if b.Stats().PendingViews != 1 {
		t.Fatalf("handed over views must leave the pending table, pending = %d", b.Stats().PendingViews)
	}

	// The engine owns handed over views; the host may not free them.
	b.ViewFree(handed[0])
	if logs.FilterMessage("view_free on a handle the host does not own").Len() != 1 {
		t.Fatal("freeing an engine owned view must be refused")
	}
	b.ViewFree(spare)
	if b.Stats().PendingViews != 0 {
		t.Fatal("spare view not freed")
	}

	b.RootFree(root)
	if host.released["spare"] != 0 {
		t.Fatal("ViewFree must not call Release")
	}
}

func TestBridge_FactoryReturnsBadHandle(t *testing.T) {
	b := New()
	mgr := b.ViewManagerNew(nil, func(any, any, string, *ErrorSlot) ViewHandle {
		return 0
	})

	var slot ErrorSlot
	if h := b.Render(mgr, nil, []byte(doc), &slot); h != 0 {
		t.Fatal("expected failure")
	}
	if !strings.Contains(slot.Message(), "invalid view handle 0") {
		t.Fatalf("slot = %q", slot.Message())
	}
}

func TestBridge_ManagerOutlivesRoots(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := New(WithLogger(zap.New(core)))
	host := newNativeHost(b)
	mgr := b.ViewManagerNew(nil, host.create)

	var slot ErrorSlot
	root := b.Render(mgr, nil, []byte(doc), &slot)

	b.ViewManagerFree(mgr)
	if logs.FilterMessage("view manager freed before its roots").Len() != 1 {
		t.Fatalf("logs = %v", logs.All())
	}

	// The Root stays usable after its manager handle is gone.
	b.RootMeasure(root, shardruntime.Size{Width: 50, Height: 50}, &slot)
	if slot.Failed() {
		t.Fatalf("RootMeasure failed: %s", slot.Message())
	}
	b.RootFree(root)
	if host.released["box#1"] != 1 {
		t.Fatal("views not released")
	}

	if h := b.Render(mgr, nil, []byte(doc), &slot); h != 0 || !slot.Failed() {
		t.Fatal("freed manager handle must be rejected")
	}
}

func TestBridge_NilSlot(t *testing.T) {
	b := New()
	host := newNativeHost(b)
	mgr := b.ViewManagerNew(nil, host.create)

	if h := b.Render(mgr, nil, []byte(doc), nil); h != 0 {
		t.Fatal("Render without a slot must not produce a Root")
	}
	if len(host.calls) != 0 {
		t.Fatal("Render without a slot must not call the host")
	}
}

func TestBridge_Close(t *testing.T) {
	b := New()
	host := newNativeHost(b)
	mgr := b.ViewManagerNew(nil, host.create)

	var slot ErrorSlot
	b.Render(mgr, nil, []byte(doc), &slot)
	b.Render(mgr, nil, []byte(doc), &slot)
	b.ViewNew("spare", host.funcs())

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(host.released) != 4 {
		t.Fatalf("released = %v", host.released)
	}
	if st := b.Stats(); st != (Stats{}) {
		t.Fatalf("stats = %+v", st)
	}
}

func TestBridge_CloseWithReentrantRelease(t *testing.T) {
	b := New()
	host := newNativeHost(b)
	spare := b.ViewNew("spare", host.funcs())

	funcs := host.funcs()
	release := funcs.Release
	funcs.Release = func(ref any) {
		release(ref)
		b.ViewFree(spare)
		b.ViewFree(b.ViewNew("late", ViewFuncs{}))
	}
	mgr := b.ViewManagerNew(nil, func(_, _ any, kind string, _ *ErrorSlot) ViewHandle {
		return b.ViewNew(kind, funcs)
	})

	var slot ErrorSlot
	if root := b.Render(mgr, nil, []byte(doc), &slot); root == 0 {
		t.Fatal(slot.Message())
	}

	done := make(chan error, 1)
	go func() { done <- b.Close() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close deadlocked on a release that calls back into the bridge")
	}
	if host.released["box"] != 1 || host.released["text"] != 1 {
		t.Fatalf("released = %v", host.released)
	}
}
