package memory

import (
	"context"
	"sync"

	"fraud-risk-engine/internal/domain/risk"
)

// HistoryStore is the in-memory assessment history, the default backend.
// All reads return copies so callers can never observe a concurrent append.
type HistoryStore struct {
	mu     sync.RWMutex
	all    []*risk.Assessment
	byUser map[string][]*risk.Assessment
}

// NewHistoryStore creates an empty in-memory store
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		byUser: make(map[string][]*risk.Assessment),
	}
}

// Append records an assessment in arrival order
func (s *HistoryStore) Append(ctx context.Context, a *risk.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all = append(s.all, a)
	s.byUser[a.UserID] = append(s.byUser[a.UserID], a)
	return nil
}

// ListByUser returns the user's assessments oldest first
func (s *HistoryStore) ListByUser(ctx context.Context, userID string) ([]*risk.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.byUser[userID]
	out := make([]*risk.Assessment, len(history))
	copy(out, history)
	return out, nil
}

// List returns all assessments oldest first
func (s *HistoryStore) List(ctx context.Context) ([]*risk.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*risk.Assessment, len(s.all))
	copy(out, s.all)
	return out, nil
}
