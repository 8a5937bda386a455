package bridge

import (
	"github.com/wippyai/shard-runtime/errors"
)

// ErrorSlot is the out-parameter of a fallible boundary call. The caller
// owns the slot; the callee writes a copy of the failure message into it and
// leaves it empty on success. Callers must check Failed before trusting any
// other output of the call.
type ErrorSlot struct {
	msg    string
	failed bool
}

// Set records err. A nil err or a nil slot leaves the slot unchanged, and the
// first failure written wins.
func (s *ErrorSlot) Set(err error) {
	if s == nil || err == nil || s.failed {
		return
	}
	s.msg = errors.Message(err)
	s.failed = true
}

// Fail records a failure message written by host code.
func (s *ErrorSlot) Fail(msg string) {
	if s == nil || s.failed {
		return
	}
	if msg == "" {
		msg = errors.Message(emptyError{})
	}
	s.msg = msg
	s.failed = true
}

// Failed reports whether a failure was written.
func (s *ErrorSlot) Failed() bool {
	return s != nil && s.failed
}

// Message returns the failure message, or "" on success.
func (s *ErrorSlot) Message() string {
	if s == nil {
		return ""
	}
	return s.msg
}

// Reset empties the slot for reuse.
func (s *ErrorSlot) Reset() {
	if s != nil {
		*s = ErrorSlot{}
	}
}

// Err converts a failed slot into an error, or nil on success.
func (s *ErrorSlot) Err() error {
	if !s.Failed() {
		return nil
	}
	return &SlotError{Message: s.msg}
}

// SlotError carries a message reported by host code through an ErrorSlot.
type SlotError struct {
	Message string
}

func (e *SlotError) Error() string {
	return e.Message
}

type emptyError struct{}

func (emptyError) Error() string { return "" }
