// Package ratelimit provides the process-wide courtesy limiter shared by every
// profile fetch worker.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter blocks until the caller may perform one outbound request.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Interval spaces requests at least every interval apart across all callers.
// The first request is admitted immediately.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval returns a shared limiter admitting one request per interval.
// A non-positive interval yields an unlimited limiter.
func NewInterval(interval time.Duration) Limiter {
	if interval <= 0 {
		return Unlimited{}
	}
	return &Interval{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until a token is available or ctx is done.
func (l *Interval) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Unlimited admits every request immediately. Used in tests and when the
// courtesy interval is disabled.
type Unlimited struct{}

// Wait returns ctx.Err() and never blocks.
func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}
