// Package tracer provides a lightweight tracing abstraction for profile fetches.
//
// The interface keeps the collector independent of OpenTelemetry APIs.
// NoopTracer is used in tests and when tracing is off; OTel records spans
// through an OpenTelemetry TracerProvider.
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span as failed.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashURL returns a short SHA-256 prefix of a profile URL so traces can be
// correlated without carrying the registrant's profile link.
func HashURL(url string) string {
	if url == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:8])
}

// SpanProfileFetch covers one URL lookup including retries.
const SpanProfileFetch = "profile.fetch"

// Attribute keys.
const (
	AttrURLHash   = "profile.url_hash"
	AttrCacheHit  = "cache.hit"
	AttrAttempt   = "attempt"
	AttrCategory  = "error.category"
	AttrBadges    = "profile.badge_count"
	AttrElapsedMs = "elapsed_ms"
)

// Event names.
const (
	EventAttemptFailed  = "attempt.failed"
	EventRetryScheduled = "retry.scheduled"
)
