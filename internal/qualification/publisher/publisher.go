// Package publisher streams finalized qualification outcomes to Kafka so
// downstream consumers (badge tracking, dashboards) can react to a run
// without reading the exported table.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"qualifier/internal/evidence/profile"
	"qualifier/internal/platform/kafka/producer"
	"qualifier/internal/qualification"
)

const (
	EventType        = "qualification.outcome"
	defaultBatchSize = 500
)

// Producer sends messages to the broker.
type Producer interface {
	Produce(ctx context.Context, msgs ...*producer.Message) error
}

// Event is the JSON payload published for one outcome.
type Event struct {
	ID                string          `json:"id"`
	RunID             string          `json:"run_id"`
	Row               int             `json:"row"`
	Name              string          `json:"name"`
	Email             string          `json:"email"`
	ProgramEmail      string          `json:"program_email"`
	DuplicateGroup    int             `json:"duplicate_group"`
	DuplicatePosition int             `json:"duplicate_position"`
	Status            string          `json:"status"`
	Reason            string          `json:"reason"`
	ProfileStatus     string          `json:"profile_status"`
	CreationYear      *int            `json:"creation_year,omitempty"`
	BadgeCount        *int            `json:"badge_count,omitempty"`
	Points            *int            `json:"points,omitempty"`
	League            *string         `json:"league,omitempty"`
	Badges            []profile.Badge `json:"badges,omitempty"`
	PublishedAt       time.Time       `json:"published_at"`
}

type Publisher struct {
	producer  Producer
	topic     string
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithBatchSize caps how many events go into one Produce call.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func New(prod Producer, topic string, opts ...Option) (*Publisher, error) {
	if prod == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	p := &Publisher{
		producer:  prod,
		topic:     topic,
		batchSize: defaultBatchSize,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Publish sends one event per outcome, keyed by run id and source row so
// replays of the same run land on the same partition.
func (p *Publisher) Publish(ctx context.Context, runID string, outcomes []qualification.Outcome) error {
	publishedAt := p.now()
	batch := make([]*producer.Message, 0, min(p.batchSize, len(outcomes)))
	sent := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.producer.Produce(ctx, batch...); err != nil {
			return fmt.Errorf("publish outcomes of run %s (%d sent): %w", runID, sent, err)
		}
		sent += len(batch)
		batch = batch[:0]
		return nil
	}

	for _, o := range outcomes {
		msg, err := p.message(runID, o, publishedAt)
		if err != nil {
			return err
		}
		batch = append(batch, msg)
		if len(batch) == p.batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "published qualification outcomes",
		"run_id", runID,
		"topic", p.topic,
		"events", sent,
	)
	return nil
}

func (p *Publisher) message(runID string, o qualification.Outcome, at time.Time) (*producer.Message, error) {
	ev := Event{
		ID:                uuid.NewString(),
		RunID:             runID,
		Row:               o.Entry.Row,
		Name:              o.Entry.Name,
		Email:             o.Entry.Email,
		ProgramEmail:      o.Entry.ProgramEmail,
		DuplicateGroup:    o.Entry.Group,
		DuplicatePosition: o.Entry.Position,
		Status:            string(o.Verdict.Status),
		Reason:            o.Verdict.Reason,
		ProfileStatus:     o.ProfileStatus,
		PublishedAt:       at,
	}
	if o.Evidence != nil {
		ev.CreationYear = o.Evidence.CreationYear
		ev.BadgeCount = o.Evidence.BadgeCount
		ev.Points = o.Evidence.Points
		ev.League = o.Evidence.League
		ev.Badges = o.Evidence.Badges
	}

	value, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal outcome event: %w", err)
	}
	return &producer.Message{
		Topic: p.topic,
		Key:   []byte(runID + ":" + strconv.Itoa(o.Entry.Row)),
		Value: value,
		Headers: map[string]string{
			"event_type": EventType,
			"run_id":     runID,
		},
	}, nil
}
