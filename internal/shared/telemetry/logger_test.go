package telemetry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInfoWritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(nil) })

	Info("request.complete", map[string]any{
		"status": 200,
		"path":   "/api/v1/analyze",
		"error":  errors.New("boom"),
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	ctx := entries[0].ContextMap()
	if ctx["path"] != "/api/v1/analyze" {
		t.Fatalf("unexpected path field: %v", ctx["path"])
	}
	if ctx["error"] != "boom" {
		t.Fatalf("unexpected error field: %v", ctx["error"])
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc...(truncated)" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Fatalf("Truncate = %q", got)
	}
	if got := Truncate("Zoë Smith", 3); got != "Zo...(truncated)" {
		t.Fatalf("Truncate split a rune: %q", got)
	}
}

func TestLDefaultsToNop(t *testing.T) {
	Set(nil)
	if L() == nil {
		t.Fatal("expected non-nil logger")
	}
}
