package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"qualifier/internal/evidence/profile/tracer"
)

func TestNoopTracer_Start(t *testing.T) {
	tr := tracer.NewNoop()
	ctx := context.Background()

	newCtx, span := tr.Start(ctx, tracer.SpanProfileFetch, tracer.String(tracer.AttrURLHash, "abc"))
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))
	span.AddEvent(tracer.EventAttemptFailed, tracer.Int(tracer.AttrAttempt, 1))
	span.End(errors.New("boom"))
}

func TestOTel_RecordsFetchSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := tracer.NewOTel(tp)

	_, span := tr.Start(context.Background(), tracer.SpanProfileFetch, tracer.String(tracer.AttrURLHash, "abc"))
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false), tracer.Duration(tracer.AttrElapsedMs, 1500*time.Millisecond))
	span.AddEvent(tracer.EventAttemptFailed, tracer.Int(tracer.AttrAttempt, 1))
	span.End(errors.New("profile not found"))

	ended := rec.Ended()
	require.Len(t, ended, 1)
	got := ended[0]
	assert.Equal(t, tracer.SpanProfileFetch, got.Name())
	assert.Equal(t, trace.SpanKindClient, got.SpanKind())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "profile not found", got.Status().Description)
	assert.Contains(t, got.Attributes(), attribute.String(tracer.AttrURLHash, "abc"))
	assert.Contains(t, got.Attributes(), attribute.Bool(tracer.AttrCacheHit, false))
	assert.Contains(t, got.Attributes(), attribute.Int64(tracer.AttrElapsedMs, 1500))

	var names []string
	for _, ev := range got.Events() {
		names = append(names, ev.Name)
	}
	// RecordError adds an "exception" event after the attempt event.
	assert.Equal(t, []string{tracer.EventAttemptFailed, "exception"}, names)
}

func TestOTel_SuccessfulSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tr := tracer.NewOTel(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	_, span := tr.Start(context.Background(), tracer.SpanProfileFetch)
	span.End(nil)

	require.Len(t, rec.Ended(), 1)
	assert.Equal(t, codes.Ok, rec.Ended()[0].Status().Code)
}

func TestOTel_GlobalProvider(t *testing.T) {
	_, span := tracer.NewOTel(nil).Start(context.Background(), tracer.SpanProfileFetch)
	require.NotNil(t, span)
	span.End(nil)
}

func TestHashURL(t *testing.T) {
	assert.Empty(t, tracer.HashURL(""))

	h := tracer.HashURL("https://www.cloudskillsboost.google/public_profiles/abc")
	assert.Len(t, h, 16)
	assert.Equal(t, h, tracer.HashURL("https://www.cloudskillsboost.google/public_profiles/abc"))
	assert.NotEqual(t, h, tracer.HashURL("https://www.cloudskillsboost.google/public_profiles/xyz"))
}
