package observe

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for the gateway's tracer.
const tracerName = "github.com/soundbarrier/auricle"

// Tracer returns the gateway's [trace.Tracer] from the globally registered
// provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named after a gateway operation (e.g. "gate admit",
// "session speak"). The caller must End the returned span.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the active trace ID in ctx, or the empty string when
// no trace is active. It is the value surfaced to devices via the
// X-Correlation-ID header, so one identifier links a device's error report
// to the server-side trace.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default [slog.Logger] enriched with the trace and span
// IDs from ctx. Without an active span it returns the default logger as-is.
func Logger(ctx context.Context) *slog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Default()
	}
	return slog.Default().With(
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	)
}

// SessionLogger returns a [Logger] additionally scoped to one device
// session. Session-lifecycle code logs through it so every line carries the
// session ID alongside any trace identifiers.
func SessionLogger(ctx context.Context, sessionID uuid.UUID) *slog.Logger {
	return Logger(ctx).With(slog.String("session_id", sessionID.String()))
}
