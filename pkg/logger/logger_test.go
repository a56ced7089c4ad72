package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestWithCarriesFields ensures fields attached to a context are emitted.
func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	ctx := With(context.Background(), "component", "picker")
	Infof(ctx, "redraw took %dms", 3)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "redraw took 3ms" {
		t.Fatalf("message = %q, want %q", entries[0].Message, "redraw took 3ms")
	}
	if got := entries[0].ContextMap()["component"]; got != "picker" {
		t.Fatalf("component field = %v, want picker", got)
	}
}

// TestInitRejectsUnknownLevel ensures a bad level string is reported.
func TestInitRejectsUnknownLevel(t *testing.T) {
	if err := Init("loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

// TestBackgroundContextFallsBackToGlobal ensures logging without fields still works.
func TestBackgroundContextFallsBackToGlobal(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Set(zap.New(core))
	t.Cleanup(func() { Set(zap.NewNop()) })

	Warnf(context.Background(), "stale buffer")
	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
}
