package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"qualifier/internal/qualification"
	"qualifier/pkg/platform/sentinel"
)

// InMemoryStore keeps run outcomes for the life of the process.
type InMemoryStore struct {
	mu    sync.RWMutex
	runs  map[string][]qualification.Outcome
	order []string
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{runs: make(map[string][]qualification.Outcome)}
}

// Save replaces any outcomes previously stored under runID.
func (s *InMemoryStore) Save(_ context.Context, runID string, outcomes []qualification.Outcome) error {
	if runID == "" {
		return fmt.Errorf("run id is required: %w", sentinel.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[runID]; ok {
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == runID })
	}
	s.runs[runID] = slices.Clone(outcomes)
	s.order = append(s.order, runID)
	return nil
}

func (s *InMemoryStore) ListByRun(_ context.Context, runID string) ([]qualification.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcomes, ok := s.runs[runID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return slices.Clone(outcomes), nil
}

// LatestRun returns the most recently saved run id.
func (s *InMemoryStore) LatestRun(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return "", sentinel.ErrNotFound
	}
	return s.order[len(s.order)-1], nil
}

var _ Store = (*InMemoryStore)(nil)
