package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"qualifier/internal/evidence/profile/metrics"
	"qualifier/internal/evidence/profile/tracer"
	"qualifier/internal/ratelimit"
	"qualifier/pkg/platform/sentinel"
)

const maxBodyBytes = 5 << 20

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Cache stores successful evidence by profile URL. Find returns an error
// wrapping sentinel.ErrNotFound on a miss.
type Cache interface {
	Find(ctx context.Context, url string) (*Evidence, error)
	Save(ctx context.Context, url string, ev *Evidence) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config holds the retry policy and request settings.
type Config struct {
	Attempts   int
	RetryDelay time.Duration
	Timeout    time.Duration
	UserAgent  string
}

// DefaultConfig returns three attempts, a 2s retry delay and a 10s per-attempt timeout.
func DefaultConfig() Config {
	return Config{
		Attempts:   3,
		RetryDelay: 2 * time.Second,
		Timeout:    10 * time.Second,
		UserAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	}
}

// Collector fetches and parses public profile pages with bounded retries.
// A single Collector is shared by all fetch workers; the limiter it holds is
// the global courtesy limit.
type Collector struct {
	cfg     Config
	client  HTTPDoer
	limiter ratelimit.Limiter
	sleep   Sleeper
	cache   Cache
	tracer  tracer.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Collector.
type Option func(*Collector)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c HTTPDoer) Option {
	return func(col *Collector) {
		col.client = c
	}
}

// WithLimiter sets the shared courtesy limiter.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(col *Collector) {
		col.limiter = l
	}
}

// WithSleeper replaces the retry delay implementation.
func WithSleeper(s Sleeper) Option {
	return func(col *Collector) {
		col.sleep = s
	}
}

// WithCache enables the evidence cache.
func WithCache(c Cache) Option {
	return func(col *Collector) {
		col.cache = c
	}
}

// WithTracer sets the tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(col *Collector) {
		col.tracer = t
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(col *Collector) {
		col.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(col *Collector) {
		col.logger = l
	}
}

// WithClock overrides the time source used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(col *Collector) {
		col.now = now
	}
}

// NewCollector creates a collector. Attempts below one are raised to one.
func NewCollector(cfg Config, opts ...Option) *Collector {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	c := &Collector{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: ratelimit.Unlimited{},
		sleep:   sleepContext,
		tracer:  tracer.NewNoop(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch retrieves evidence for url. It never returns an error: after the last
// failed attempt the result carries nil content fields and an "error: ..." status.
func (c *Collector) Fetch(ctx context.Context, url string) Evidence {
	ctx, span := c.tracer.Start(ctx, tracer.SpanProfileFetch, tracer.String(tracer.AttrURLHash, tracer.HashURL(url)))

	if ev, ok := c.fromCache(ctx, url); ok {
		span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, true))
		span.End(nil)
		return ev
	}
	span.SetAttributes(tracer.Bool(tracer.AttrCacheHit, false))

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = NewFetchError(ErrorInternal, "courtesy limiter", err)
			break
		}
		c.metrics.ObserveLimiterWait(time.Since(waitStart))

		start := time.Now()
		ev, err := c.attempt(ctx, url)
		elapsed := time.Since(start)

		if err == nil {
			c.metrics.ObserveAttempt(StatusSuccess, elapsed)
			c.metrics.IncrementResult(StatusSuccess)
			ev.URL = url
			ev.Status = StatusSuccess
			ev.FetchedAt = c.now()
			c.toCache(ctx, url, &ev)
			span.SetAttributes(tracer.Int(tracer.AttrAttempt, attempt), tracer.Int(tracer.AttrBadges, *ev.BadgeCount))
			span.End(nil)
			return ev
		}

		lastErr = err
		category := GetCategory(err)
		c.metrics.ObserveAttempt(string(category), elapsed)
		span.AddEvent(tracer.EventAttemptFailed,
			tracer.Int(tracer.AttrAttempt, attempt),
			tracer.String(tracer.AttrCategory, string(category)),
			tracer.Duration(tracer.AttrElapsedMs, elapsed),
		)
		c.logger.WarnContext(ctx, "profile fetch attempt failed",
			"url", url,
			"attempt", attempt,
			"category", category,
			"error", err,
		)

		if !IsRetryable(err) || attempt == c.cfg.Attempts {
			break
		}
		span.AddEvent(tracer.EventRetryScheduled, tracer.Duration(tracer.AttrElapsedMs, c.cfg.RetryDelay))
		if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
			break
		}
	}

	c.metrics.IncrementResult("error")
	span.End(lastErr)
	return Unavailable(url, lastErr, c.now())
}

func (c *Collector) attempt(ctx context.Context, url string) (Evidence, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Evidence{}, NewFetchError(ErrorBadData, "invalid profile url", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Evidence{}, classifyTransport(ctx, "request failed", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Evidence{}, NewFetchError(ErrorNotFound, "profile not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return Evidence{}, NewFetchError(ErrorRateLimited, "rate limit exceeded", nil)
	case resp.StatusCode >= 500:
		return Evidence{}, NewFetchError(ErrorProviderOutage, fmt.Sprintf("profile host unavailable: %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return Evidence{}, NewFetchError(ErrorBadData, fmt.Sprintf("unexpected status: %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Evidence{}, classifyTransport(ctx, "failed to read response", err)
	}

	ev, err := Parse(bytes.NewReader(body))
	if err != nil {
		return Evidence{}, NewFetchError(ErrorBadData, "failed to parse profile", err)
	}
	return ev, nil
}

func classifyTransport(ctx context.Context, msg string, err error) *FetchError {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return NewFetchError(ErrorTimeout, "request timeout", err)
	case errors.Is(err, context.Canceled):
		return NewFetchError(ErrorInternal, "request cancelled", err)
	default:
		return NewFetchError(ErrorProviderOutage, msg, err)
	}
}

func (c *Collector) fromCache(ctx context.Context, url string) (Evidence, bool) {
	if c.cache == nil {
		return Evidence{}, false
	}
	ev, err := c.cache.Find(ctx, url)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			c.logger.WarnContext(ctx, "profile cache lookup failed", "url", url, "error", err)
		}
		c.metrics.RecordCacheMiss()
		return Evidence{}, false
	}
	c.metrics.RecordCacheHit()
	return *ev, true
}

func (c *Collector) toCache(ctx context.Context, url string, ev *Evidence) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Save(ctx, url, ev); err != nil {
		c.logger.WarnContext(ctx, "profile cache save failed", "url", url, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
