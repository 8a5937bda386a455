// Package bridge exposes the engine through a C-ABI-shaped surface of opaque
// handles, capability tables and error slots.
//
// # Handles
//
//	ViewHandle    - a host view created with ViewNew, owned by the host
//	                until a CreateViewFunc returns it to the engine
//	ManagerHandle - a view manager created with ViewManagerNew
//	RootHandle    - the result of a successful Render
//
// Handles are generation tagged entries of a resource.UnifiedTable, so a
// freed or mistyped handle is rejected instead of dereferenced.
//
// # Error Slots
//
// Render, RootMeasure and every host capability take an *ErrorSlot. The
// caller allocates it; the callee writes a message only on failure. The
// message is copied into the slot, so neither side frees anything. A zero
// RootHandle is returned whenever the slot is written.
//
// # Protocol Versions
//
// Negotiate maps a host's semantic version to a Protocol, and Connect
// returns a Bridge bound to it. v1 hosts use the deprecated Legacy*
// functions, which have no error slots: their failures are logged and
// surface only as a zero RootHandle. A Bridge refuses the entry points of
// the protocol it is not bound to.
package bridge
