package logger

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLevel(t *testing.T) {
	cases := []struct {
		configured, mode string
		want             zapcore.Level
	}{
		{"", "debug", zap.DebugLevel},
		{"", "release", zap.InfoLevel},
		{"warn", "debug", zap.WarnLevel},
		{"nonsense", "release", zap.InfoLevel},
	}
	for _, c := range cases {
		if got := Level(c.configured, c.mode); got != c.want {
			t.Errorf("Level(%q, %q) = %v, want %v", c.configured, c.mode, got, c.want)
		}
	}
}

func TestFromContextAddsTraceIDs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })

	FromContext(context.Background()).Info("no trace")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))
	FromContext(ctx).Info("traced")

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if len(entries[0].Context) != 0 {
		t.Fatalf("untraced entry has fields: %v", entries[0].Context)
	}
	fields := entries[1].ContextMap()
	if fields["trace_id"] != traceID.String() || fields["span_id"] != spanID.String() {
		t.Fatalf("fields = %v", fields)
	}
}
