// Package errors provides structured error types for the shard runtime.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the failing host operation, the view kind, the node path
// inside the document and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseMutate, errors.KindHostFailure).
//		Op("set_prop").
//		ViewKind("text").
//		Path("root", "children[0]").
//		Detail("property %q rejected", "value").
//		Cause(hostErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FieldMissing(path, "type")
//	err := errors.HostFailure(errors.PhaseConstruct, "create_view", "box", path, cause)
//
// Message renders any error as the text written into a boundary error slot.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
