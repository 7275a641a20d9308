package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestNew_Levels(t *testing.T) {
	debug := New("debug", "text")
	if !debug.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level to be enabled")
	}

	errOnly := New("error", "text")
	if errOnly.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("expected info to be disabled at error level")
	}

	fallback := New("bogus", "json")
	if fallback == nil {
		t.Fatal("expected non-nil logger for unknown level")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	if id := RequestID(ctx); id != "" {
		t.Errorf("expected empty request ID, got %q", id)
	}

	ctx = WithRequestID(ctx, "req-123")
	if id := RequestID(ctx); id != "req-123" {
		t.Errorf("got %q, want req-123", id)
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}

	custom := New("debug", "json")
	ctx := WithLogger(context.Background(), custom)
	if FromContext(ctx) != custom {
		t.Error("expected custom logger from context")
	}
}

func TestL(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-456")
	ctx = WithLogger(ctx, New("info", "text"))
	if L(ctx) == nil {
		t.Fatal("expected non-nil logger from L()")
	}
}
