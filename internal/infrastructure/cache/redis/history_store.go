package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"fraud-risk-engine/internal/domain/risk"
)

const (
	historySeqKey = "history:seq"
	historyAllKey = "history:all"
)

// HistoryStore keeps assessment history in Redis sorted sets, ordered
// by a global append sequence so reads come back oldest first.
type HistoryStore struct {
	client *Client
}

// NewHistoryStore creates a Redis-backed history store
func NewHistoryStore(client *Client) *HistoryStore {
	return &HistoryStore{client: client}
}

func userKey(userID string) string {
	return fmt.Sprintf("history:user:%s", userID)
}

// Append stores a new assessment
func (s *HistoryStore) Append(ctx context.Context, a *risk.Assessment) error {
	seq, err := s.client.Incr(ctx, historySeqKey)
	if err != nil {
		return fmt.Errorf("failed to allocate sequence: %w", err)
	}

	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}

	member := redis.Z{
		Score:  float64(seq),
		Member: string(payload),
	}

	if err := s.client.ZAdd(ctx, userKey(a.UserID), member); err != nil {
		return fmt.Errorf("failed to store assessment: %w", err)
	}
	if err := s.client.ZAdd(ctx, historyAllKey, member); err != nil {
		return fmt.Errorf("failed to store assessment: %w", err)
	}

	return nil
}

// ListByUser returns a user's assessments oldest first
func (s *HistoryStore) ListByUser(ctx context.Context, userID string) ([]*risk.Assessment, error) {
	return s.list(ctx, userKey(userID))
}

// List returns all assessments oldest first
func (s *HistoryStore) List(ctx context.Context) ([]*risk.Assessment, error) {
	return s.list(ctx, historyAllKey)
}

func (s *HistoryStore) list(ctx context.Context, key string) ([]*risk.Assessment, error) {
	members, err := s.client.ZRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}

	assessments := make([]*risk.Assessment, 0, len(members))
	for _, member := range members {
		var a risk.Assessment
		if err := json.Unmarshal([]byte(member), &a); err != nil {
			continue
		}
		assessments = append(assessments, &a)
	}
	return assessments, nil
}
