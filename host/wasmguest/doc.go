// Package wasmguest runs host views inside a WebAssembly module with wazero.
//
// The guest exports linear memory and these functions (core wasm types):
//
//	alloc(size i32) -> ptr i32
//	create_view(kind_ptr i32, kind_len i32, err i32) -> id i32
//	set_frame(id i32, x f32, y f32, w f32, h f32, err i32)
//	set_prop(id i32, key_ptr i32, key_len i32, val_ptr i32, val_len i32, err i32)
//	add_child(id i32, child i32, err i32)
//	measure(id i32, w f32, h f32, out i32, err i32)
//	release_view(id i32)
//	dealloc(ptr i32, size i32)    optional
//
// err points at an 8 byte error slot: the message pointer followed by its
// length, little endian. The host zeroes the slot before each call; a non
// zero length after the call is a failure. The message stays owned by the
// guest and is copied by the host before its next call. measure writes the
// natural width and height as two f32 values at out. Unbounded constraint
// axes are passed as NaN.
//
// Strings passed to the guest are written into one buffer obtained from
// alloc and reused by every call, so they are valid only until the call
// returns. The buffer grows by doubling; when the guest exports dealloc the
// outgrown buffer is handed back to it.
package wasmguest
