package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode    Phase = "decode"    // JSON to document tree
	PhaseConstruct Phase = "construct" // host view creation
	PhaseMutate    Phase = "mutate"    // set_prop / add_child / set_frame
	PhaseLayout    Phase = "layout"    // layout and measurement
	PhaseLifecycle Phase = "lifecycle" // manager/root/view ownership
	PhaseBoundary  Phase = "boundary"  // handle and protocol checks at the bridge
)

// Kind categorizes the error
type Kind string

const (
	KindMalformed       Kind = "malformed"
	KindUnknownKind     Kind = "unknown_kind"
	KindFieldMissing    Kind = "field_missing"
	KindInvalidValue    Kind = "invalid_value"
	KindTooDeep         Kind = "too_deep"
	KindHostFailure     Kind = "host_failure"
	KindClosed          Kind = "closed"
	KindInUse           Kind = "in_use"
	KindInvalidHandle   Kind = "invalid_handle"
	KindReleased        Kind = "released"
	KindVersionMismatch Kind = "version_mismatch"
	KindPanic           Kind = "panic"
	KindDocumentError   Kind = "document_error"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	Op       string
	ViewKind string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteString(" in ")
		b.WriteString(e.Op)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.ViewKind != "" {
		b.WriteString(" (kind ")
		b.WriteString(e.ViewKind)
		b.WriteByte(')')
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the node path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Op sets the boundary operation name
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// ViewKind sets the node kind
func (b *Builder) ViewKind(kind string) *Builder {
	b.err.ViewKind = kind
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Malformed creates a malformed document error
func Malformed(path []string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindMalformed,
		Path:   path,
		Detail: "malformed JSON document",
		Cause:  cause,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(path []string, fieldName string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// UnknownKind creates an unknown node kind error
func UnknownKind(path []string, kind string) *Error {
	return &Error{
		Phase:    PhaseDecode,
		Kind:     KindUnknownKind,
		Path:     path,
		ViewKind: kind,
		Detail:   fmt.Sprintf("unknown node kind %q", kind),
		Value:    kind,
	}
}

// InvalidValue creates an invalid value error for a known field
func InvalidValue(path []string, field string, value any) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindInvalidValue,
		Path:   path,
		Detail: fmt.Sprintf("unexpected value for %s: %v", field, value),
		Value:  value,
	}
}

// DocumentError creates an error for a document that reports a failure in
// place of a view tree
func DocumentError(message string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindDocumentError,
		Path:   []string{"error"},
		Detail: message,
		Value:  message,
	}
}

// TooDeep creates a depth limit error
func TooDeep(path []string, limit int) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindTooDeep,
		Path:   path,
		Detail: fmt.Sprintf("document deeper than %d levels", limit),
		Value:  limit,
	}
}

// HostFailure wraps a failure reported by a host capability
func HostFailure(phase Phase, op, viewKind string, path []string, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindHostFailure,
		Op:       op,
		ViewKind: viewKind,
		Path:     path,
		Detail:   "host reported failure",
		Cause:    cause,
	}
}

// Recovered converts a recovered panic from host code into an error
func Recovered(phase Phase, op string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindPanic,
		Op:     op,
		Detail: fmt.Sprintf("panic: %v", value),
		Value:  value,
	}
}

// Closed creates an error for operations on a closed manager
func Closed(what string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// ManagerInUse creates an error for freeing a manager that still has live roots
func ManagerInUse(liveRoots int) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindInUse,
		Detail: fmt.Sprintf("view manager still owns %d live root(s)", liveRoots),
		Value:  liveRoots,
	}
}

// Released creates an error for access to an already released root or view
func Released(what string) *Error {
	return &Error{
		Phase:  PhaseLifecycle,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("%s already released", what),
	}
}

// InvalidHandle creates an error for an unknown or mistyped boundary handle
func InvalidHandle(what string, handle uint32) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("invalid %s handle %d", what, handle),
		Value:  handle,
	}
}

// VersionMismatch creates a protocol negotiation error
func VersionMismatch(host, engine string) *Error {
	return &Error{
		Phase:  PhaseBoundary,
		Kind:   KindVersionMismatch,
		Detail: fmt.Sprintf("host protocol %q is not supported by engine protocol %q", host, engine),
		Value:  host,
	}
}

// Message returns the text a boundary error slot carries for err.
// A nil error yields the empty string.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if msg == "" {
		return "unknown native error"
	}
	return msg
}
