package store

import (
	"context"

	"qualifier/internal/qualification"
)

// Store persists the outcomes of qualification runs so a summary can be
// rebuilt later. ListByRun and LatestRun return sentinel.ErrNotFound when no
// matching run exists.
type Store interface {
	Save(ctx context.Context, runID string, outcomes []qualification.Outcome) error
	ListByRun(ctx context.Context, runID string) ([]qualification.Outcome, error)
	LatestRun(ctx context.Context) (string, error)
}
