package bridge

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetLogger(t *testing.T) {
	prev := Logger()
	defer SetLogger(prev)

	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("SetLogger(nil) must keep the current logger")
	}

	b := New()
	b.ViewFree(42)
	if logs.FilterMessage("view_free on a handle the host does not own").Len() != 1 {
		t.Fatalf("logs = %v", logs.All())
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}
