package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseMutate,
				Kind:     KindHostFailure,
				Op:       "set_prop",
				Path:     []string{"root", "children[0]"},
				ViewKind: "text",
				Detail:   "rejected",
			},
			contains: []string{"[mutate]", "host_failure", "in set_prop", "root.children[0]", "(kind text)", "rejected"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindMalformed,
			},
			contains: []string{"[decode]", "malformed"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseConstruct,
				Kind:   KindHostFailure,
				Detail: "factory failed",
				Cause:  errors.New("no such view"),
			},
			contains: []string{"[construct]", "host_failure", "factory failed", "caused by", "no such view"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseLayout,
		Kind:  KindHostFailure,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not reach cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseConstruct,
		Kind:  KindHostFailure,
		Path:  []string{"root"},
	}

	if !err.Is(&Error{Phase: PhaseConstruct, Kind: KindHostFailure}) {
		t.Error("Is should match same phase and kind")
	}

	if err.Is(&Error{Phase: PhaseMutate, Kind: KindHostFailure}) {
		t.Error("Is should not match different phase")
	}

	if err.Is(&Error{Phase: PhaseConstruct, Kind: KindPanic}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseConstruct, Kind: KindHostFailure}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMutate, KindHostFailure).
		Path("root", "children[1]").
		Op("add_child").
		ViewKind("box").
		Value(7).
		Cause(cause).
		Detail("child %d rejected", 1).
		Build()

	if err.Phase != PhaseMutate {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMutate)
	}
	if err.Kind != KindHostFailure {
		t.Errorf("Kind = %v, want %v", err.Kind, KindHostFailure)
	}
	if len(err.Path) != 2 || err.Path[1] != "children[1]" {
		t.Errorf("Path = %v, want [root children[1]]", err.Path)
	}
	if err.Op != "add_child" {
		t.Errorf("Op = %q, want add_child", err.Op)
	}
	if err.ViewKind != "box" {
		t.Errorf("ViewKind = %q, want box", err.ViewKind)
	}
	if err.Value != 7 {
		t.Errorf("Value = %v, want 7", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "child 1 rejected" {
		t.Errorf("Detail = %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	path := []string{"root"}
	tests := []struct {
		err   *Error
		name  string
		phase Phase
		kind  Kind
	}{
		{Malformed(nil, errors.New("eof")), "Malformed", PhaseDecode, KindMalformed},
		{FieldMissing(path, "type"), "FieldMissing", PhaseDecode, KindFieldMissing},
		{UnknownKind(path, "blink"), "UnknownKind", PhaseDecode, KindUnknownKind},
		{InvalidValue(path, "flex-direction", "diagonal"), "InvalidValue", PhaseDecode, KindInvalidValue},
		{TooDeep(path, 4), "TooDeep", PhaseDecode, KindTooDeep},
		{HostFailure(PhaseConstruct, "create_view", "box", path, errors.New("x")), "HostFailure", PhaseConstruct, KindHostFailure},
		{Recovered(PhaseMutate, "set_frame", "boom"), "Recovered", PhaseMutate, KindPanic},
		{Closed("view manager"), "Closed", PhaseLifecycle, KindClosed},
		{ManagerInUse(2), "ManagerInUse", PhaseLifecycle, KindInUse},
		{Released("root"), "Released", PhaseLifecycle, KindReleased},
		{InvalidHandle("root", 9), "InvalidHandle", PhaseBoundary, KindInvalidHandle},
		{VersionMismatch("v3.0.0", "v2.0.0"), "VersionMismatch", PhaseBoundary, KindVersionMismatch},
		{DocumentError("not found"), "DocumentError", PhaseDecode, KindDocumentError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase {
				t.Errorf("Phase = %v, want %v", tt.err.Phase, tt.phase)
			}
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}

	t.Run("UnknownKind carries kind", func(t *testing.T) {
		err := UnknownKind(path, "blink")
		if err.ViewKind != "blink" || !strings.Contains(err.Detail, `"blink"`) {
			t.Errorf("unexpected error %v", err)
		}
	})
}

func TestMessage(t *testing.T) {
	if Message(nil) != "" {
		t.Error("nil error must produce empty message")
	}
	if got := Message(errors.New("")); got != "unknown native error" {
		t.Errorf("Message(empty) = %q", got)
	}
	err := FieldMissing([]string{"root"}, "type")
	if got := Message(err); got != err.Error() {
		t.Errorf("Message = %q, want %q", got, err.Error())
	}
}
