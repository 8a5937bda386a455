// Package engine implements the render protocol between a JSON view document
// and a host view framework.
//
// # Architecture
//
//	ViewManager - owns the host ViewFactory; one per host surface
//	Root        - owns the views of one successful render plus layout state
//
// # Render Flow
//
//  1. The document is decoded. Decode errors fail the call before any host
//     capability is invoked.
//  2. Views are created depth first, parent before children, children in
//     document order.
//  3. Each node's props are applied with SetProp in declaration order.
//  4. AddChild(parent, child) is called once the child's subtree is complete.
//  5. The tree is laid out. Leaf views are asked for their natural size with
//     Measure; unbounded axes are NaN (see shardruntime.Unbounded).
//  6. SetFrame is applied to every view.
//  7. Any failure releases every view created by the call, most recent
//     first, and no Root is returned.
//
// # Ownership
//
// Every view created during a render is recorded in a resource.UnifiedTable
// owned by the render and later by its Root. Views implementing
// shardruntime.Releaser are released exactly once, either while unwinding a
// failed render or by Root.Free. A second Free reports errors.KindReleased.
//
// Roots keep their manager alive: ViewManager.Close returns errors.KindInUse
// while Roots exist and completes when the last one is freed. Render after
// Close fails with errors.KindClosed.
//
// # Re-measurement
//
// Root.Measure re-runs layout without decoding or creating views. Only views
// whose frame changed receive SetFrame, and a leaf's Measure is consulted
// again only for constraints it has not answered before.
//
// # Errors
//
// Host failures are wrapped in *errors.Error with the capability name, the
// node kind and its document path. Panics raised by host callbacks are
// recovered as errors.KindPanic and unwind like any failure.
//
// # Thread Safety
//
// Roots and the views they own must be used from a single goroutine.
// ViewManager bookkeeping is safe for concurrent use, but the factory is
// invoked strictly sequentially within a render.
package engine
