package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "qualifier/internal/evidence/profile"

// OTel records profile fetch spans through an OpenTelemetry provider.
type OTel struct {
	tracer trace.Tracer
}

// NewOTel traces with provider, or with the globally registered provider
// when provider is nil.
func NewOTel(provider trace.TracerProvider) *OTel {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &OTel{tracer: provider.Tracer(instrumentationName)}
}

// Start opens a client span; each fetch is an outbound call to the profile host.
func (o *OTel) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(keyValues(attrs)...),
	)
	return ctx, otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(keyValues(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(keyValues(attrs)...))
}

// keyValues converts the value types the attribute helpers produce; anything
// else is dropped.
func keyValues(attrs []Attribute) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		key := attribute.Key(a.Key)
		switch v := a.Value.(type) {
		case string:
			kvs = append(kvs, key.String(v))
		case bool:
			kvs = append(kvs, key.Bool(v))
		case int:
			kvs = append(kvs, key.Int(v))
		case int64:
			kvs = append(kvs, key.Int64(v))
		}
	}
	return kvs
}

var _ Tracer = (*OTel)(nil)
