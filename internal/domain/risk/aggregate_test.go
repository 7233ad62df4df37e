package risk

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeHistory(userID string, scores ...float64) []*Assessment {
	history := make([]*Assessment, 0, len(scores))
	for i, s := range scores {
		a := NewAssessment(fmt.Sprintf("TXN_%06d", i+1), userID, decimal.NewFromFloat(s), CategoryFromScore(decimal.NewFromFloat(s)))
		a.Timestamp = fmt.Sprintf("2024-06-%02dT10:00:00Z", i+1)
		history = append(history, a)
	}
	return history
}

func TestAggregateProfile(t *testing.T) {
	t.Run("empty history is rejected", func(t *testing.T) {
		_, err := AggregateProfile("user_1", nil)
		assert.ErrorIs(t, err, ErrEmptyHistory)
	})

	t.Run("mean max and increasing trend", func(t *testing.T) {
		history := makeHistory("user_1", 0.2, 0.4, 0.9)

		profile, err := AggregateProfile("user_1", history)
		require.NoError(t, err)

		assert.Equal(t, "user_1", profile.UserID)
		assert.Equal(t, 3, profile.TransactionCount)
		assert.True(t, profile.AvgRiskScore.Equal(decimal.NewFromFloat(0.5)), "avg %s", profile.AvgRiskScore)
		assert.True(t, profile.MaxRiskScore.Equal(decimal.NewFromFloat(0.9)), "max %s", profile.MaxRiskScore)
		assert.Equal(t, TrendIncreasing, profile.RiskTrend)
	})

	t.Run("declining scores read as stable", func(t *testing.T) {
		history := makeHistory("user_1", 0.9, 0.4, 0.2)

		profile, err := AggregateProfile("user_1", history)
		require.NoError(t, err)
		assert.Equal(t, TrendStable, profile.RiskTrend)
	})

	t.Run("fraud rate from labels", func(t *testing.T) {
		history := makeHistory("user_1", 0.1, 0.2, 0.3, 0.4)
		history[0].FraudLabel = 1
		history[3].FraudLabel = 1

		profile, err := AggregateProfile("user_1", history)
		require.NoError(t, err)
		assert.True(t, profile.FraudRate.Equal(decimal.NewFromFloat(0.5)), "rate %s", profile.FraudRate)
	})

	t.Run("anomaly count and flag", func(t *testing.T) {
		history := makeHistory("user_1", 0.1, 0.2, 0.3)
		history[1].IsAnomaly = true

		profile, err := AggregateProfile("user_1", history)
		require.NoError(t, err)
		assert.Equal(t, 1, profile.AnomalyCount)
		assert.True(t, profile.IsAnomalous)
	})

	t.Run("last activity is the latest timestamp", func(t *testing.T) {
		history := makeHistory("user_1", 0.1, 0.2, 0.3)
		// Shuffle so the latest timestamp is not in last position
		history[0], history[2] = history[2], history[0]

		profile, err := AggregateProfile("user_1", history)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-03T10:00:00Z", profile.LastActivity)
	})

	t.Run("recent history caps at ten entries", func(t *testing.T) {
		scores := make([]float64, 15)
		for i := range scores {
			scores[i] = 0.1
		}
		history := makeHistory("user_1", scores...)

		profile, err := AggregateProfile("user_1", history)
		require.NoError(t, err)
		require.Len(t, profile.RecentHistory, 10)
		// Window holds the most recent entries, order preserved
		assert.Equal(t, "TXN_000006", profile.RecentHistory[0].TransactionID)
		assert.Equal(t, "TXN_000015", profile.RecentHistory[9].TransactionID)
	})

	t.Run("recomputation is idempotent", func(t *testing.T) {
		history := makeHistory("user_1", 0.2, 0.4, 0.9)

		first, err := AggregateProfile("user_1", history)
		require.NoError(t, err)
		second, err := AggregateProfile("user_1", history)
		require.NoError(t, err)

		assert.Equal(t, first.TransactionCount, second.TransactionCount)
		assert.True(t, first.AvgRiskScore.Equal(second.AvgRiskScore))
		assert.Equal(t, first.RiskTrend, second.RiskTrend)
		assert.Equal(t, first.LastActivity, second.LastActivity)
	})
}
