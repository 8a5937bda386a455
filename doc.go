// Package shardruntime provides a declarative view rendering engine that is
// embeddable in a foreign host through a small, stable boundary protocol.
//
// A JSON document describing a view tree is submitted to the engine. The
// engine asks a host-supplied factory for one native view per document node,
// applies properties and child edges, runs layout, assigns frames and returns
// a Root that owns the resulting tree. The host can re-measure a Root against
// new size constraints without re-parsing the document.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	shardruntime/        Root package with Size, Frame and the View capability set
//	├── engine/          View manager, render pipeline, Root lifecycle
//	├── bridge/          C-ABI shaped boundary: opaque handles and error slots
//	├── document/        JSON document decoding into typed nodes
//	├── layout/          Flexbox subset driving frames and measurement
//	├── resource/        Ownership-tagged handle table
//	├── errors/          Structured error types
//	├── testbed/         Recording fake host for protocol tests
//	├── host/            Host implementations (html, terminal, wasm guest) and prop decoding
//	└── cmd/shard/       CLI previewing documents with any host
//
// # Quick Start
//
//	mgr := engine.NewViewManager(factory)
//	defer mgr.Close()
//
//	root, err := mgr.Render(hostCtx, []byte(`{"type":"box","children":[{"type":"text"}]}`))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer root.Free()
//
//	native := root.View()
//	if err := root.Measure(shardruntime.Size{Width: 320, Height: shardruntime.Unbounded}); err != nil {
//	    log.Fatal(err)
//	}
//
// # View Capability Set
//
// A host view exposes exactly four operations: SetFrame, SetProp, AddChild
// and Measure. The engine never constructs a native view itself; it only
// orchestrates calls through this capability set. Views that hold host
// resources may implement Releaser; the engine calls Release exactly once
// per view, when the owning Root is freed or a failed render unwinds.
//
// # Unbounded Constraints
//
// Unbounded is NaN. A NaN axis in a Size passed to Measure means the view
// may choose its natural extent along that axis. Measured sizes returned by
// hosts must be finite and non-negative.
//
// # Thread Safety
//
// The protocol is single-threaded. A ViewManager, its Roots and their views
// must be used from the goroutine that owns the host's view framework.
package shardruntime
