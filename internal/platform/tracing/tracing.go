// Package tracing sets up the OpenTelemetry SDK for a CLI run. Finished spans
// are written to the structured log at debug level.
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewProvider returns a sampling-always provider that logs every finished span.
// The caller must Shutdown the provider when the run ends.
func NewProvider(log *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(NewLogProcessor(log)),
	)
}

// LogProcessor is a span processor that writes finished spans to a logger.
type LogProcessor struct {
	log *slog.Logger
}

func NewLogProcessor(log *slog.Logger) *LogProcessor {
	if log == nil {
		log = slog.Default()
	}
	return &LogProcessor{log: log}
}

func (p *LogProcessor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

func (p *LogProcessor) OnEnd(s sdktrace.ReadOnlySpan) {
	ctx := context.Background()
	if !p.log.Enabled(ctx, slog.LevelDebug) {
		return
	}
	args := []any{
		"span", s.Name(),
		"trace_id", s.SpanContext().TraceID().String(),
		"duration_ms", s.EndTime().Sub(s.StartTime()).Milliseconds(),
		"events", len(s.Events()),
	}
	if st := s.Status(); st.Code == codes.Error {
		args = append(args, "error", st.Description)
	}
	for _, kv := range s.Attributes() {
		args = append(args, string(kv.Key), kv.Value.Emit())
	}
	p.log.DebugContext(ctx, "span finished", args...)
}

func (p *LogProcessor) Shutdown(context.Context) error { return nil }

func (p *LogProcessor) ForceFlush(context.Context) error { return nil }

var _ sdktrace.SpanProcessor = (*LogProcessor)(nil)
