package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Collector,Store,Publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/qualification"
	"qualifier/internal/qualification/metrics"
	"qualifier/internal/registration"
)

const defaultWorkers = 4

// Collector fetches profile evidence. Implementations never fail: an
// unreachable profile yields evidence with an error status.
type Collector interface {
	Fetch(ctx context.Context, url string) profile.Evidence
}

// Store persists finalized outcomes of a run.
type Store interface {
	Save(ctx context.Context, runID string, outcomes []qualification.Outcome) error
}

// Publisher announces finalized outcomes to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, runID string, outcomes []qualification.Outcome) error
}

// Service runs the qualification pipeline over a dataset: group, short-circuit,
// collect evidence through a bounded pool, then classify in grouped order.
type Service struct {
	collector Collector
	policy    qualification.Policy
	store     Store
	publisher Publisher
	workers   int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithStore(store Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithWorkers bounds the number of concurrent evidence fetches. Values below
// one are ignored.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator overrides run id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

func New(collector Collector, policy qualification.Policy, opts ...Option) (*Service, error) {
	if collector == nil {
		return nil, fmt.Errorf("evidence collector is required")
	}
	if policy.ProgramYear <= 0 {
		return nil, fmt.Errorf("program year is required")
	}

	svc := &Service{
		collector: collector,
		policy:    policy,
		workers:   defaultWorkers,
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// fetched hands one record's evidence from a worker back to the run loop,
// which is the only writer of record state.
type fetched struct {
	index    int
	evidence profile.Evidence
}

// Run qualifies every record of ds. Cancelling ctx stops new fetches; records
// still waiting for evidence keep their provisional verdict and the run is
// marked interrupted. The returned Run is complete even when saving fails, in
// which case the save error is returned alongside it.
func (s *Service) Run(ctx context.Context, ds *registration.Dataset) (*qualification.Run, error) {
	if ds == nil {
		return nil, errors.New("dataset is required")
	}

	run := &qualification.Run{
		ID:        s.newID(),
		StartedAt: s.now(),
	}
	logger := s.logger.With("run_id", run.ID)

	entries := registration.Ordered(registration.Group(ds.Records))
	machine := qualification.Machine{Policy: s.policy, ConsentColumn: ds.HasConsent}

	states := make([]qualification.State, len(entries))
	var pending []int
	for i, e := range entries {
		states[i] = machine.Start(e)
		if qualification.NeedsEvidence(states[i]) {
			pending = append(pending, i)
		}
	}
	logger.InfoContext(ctx, "qualification run started",
		"records", len(entries),
		"fetches", len(pending),
		"workers", s.workers,
	)

	for r := range s.collect(ctx, logger, entries, pending) {
		states[r.index] = machine.Observe(entries[r.index], states[r.index], r.evidence)
	}

	run.Outcomes = make([]qualification.Outcome, len(entries))
	for i, e := range entries {
		if qualification.NeedsEvidence(states[i]) {
			run.Interrupted = true
		}
		out := machine.Outcome(e, states[i])
		s.metrics.ObserveOutcome(out)
		run.Outcomes[i] = out
	}
	run.FinishedAt = s.now()
	s.metrics.ObserveRun(run.FinishedAt.Sub(run.StartedAt))

	if run.Interrupted {
		logger.WarnContext(ctx, "qualification run interrupted", "error", ctx.Err())
	}
	logger.InfoContext(ctx, "qualification run finished",
		"records", len(run.Outcomes),
		"interrupted", run.Interrupted,
		"duration", run.FinishedAt.Sub(run.StartedAt),
	)

	// Results of an interrupted run are still persisted.
	sinkCtx := context.WithoutCancel(ctx)
	if s.store != nil {
		if err := s.store.Save(sinkCtx, run.ID, run.Outcomes); err != nil {
			s.metrics.IncrementSinkError("store")
			return run, fmt.Errorf("save run %s: %w", run.ID, err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(sinkCtx, run.ID, run.Outcomes); err != nil {
			s.metrics.IncrementSinkError("publish")
			logger.WarnContext(ctx, "failed to publish outcomes", "error", err)
		}
	}
	return run, nil
}

// collect fetches evidence for the pending entries on a bounded pool and
// returns a closed channel holding every result. Dispatch stops once ctx is
// done, and a fetch that failed because of the cancellation is dropped so the
// record stays provisional.
func (s *Service) collect(ctx context.Context, logger *slog.Logger, entries []registration.Entry, pending []int) <-chan fetched {
	results := make(chan fetched, len(pending))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for n, idx := range pending {
		if ctx.Err() != nil {
			break
		}
		entry := entries[idx]
		g.Go(func() error {
			logger.InfoContext(ctx, "checking profile",
				"progress", fmt.Sprintf("%d/%d", n+1, len(pending)),
				"row", entry.Row,
				"name", entry.Name,
			)
			ev := s.collector.Fetch(ctx, entry.ProfileURL)
			if ctx.Err() != nil && !ev.Succeeded() {
				return nil
			}
			results <- fetched{index: idx, evidence: ev}
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	return results
}
