package risk

import "github.com/shopspring/decimal"

// recentHistorySize bounds the history window embedded in a profile
const recentHistorySize = 10

// AggregateProfile recomputes a user's profile from their full assessment
// history, ordered oldest first. The full recomputation (rather than an
// incremental patch) guarantees the profile is always consistent with the
// history; per-user histories are expected to stay small.
func AggregateProfile(userID string, history []*Assessment) (*UserProfile, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	n := len(history)
	sum := decimal.Zero
	max := decimal.Zero
	anomalies := 0
	frauds := 0
	lastActivity := ""

	for _, a := range history {
		sum = sum.Add(a.RiskScore)
		if a.RiskScore.GreaterThan(max) {
			max = a.RiskScore
		}
		if a.IsAnomaly {
			anomalies++
		}
		if a.FraudLabel == 1 {
			frauds++
		}
		// Timestamps are RFC3339, so lexicographic order is temporal order.
		if a.Timestamp > lastActivity {
			lastActivity = a.Timestamp
		}
	}

	mean := sum.Div(decimal.NewFromInt(int64(n)))

	// Coarse trend heuristic: last score against the mean of all scores.
	trend := TrendStable
	if history[n-1].RiskScore.GreaterThan(mean) {
		trend = TrendIncreasing
	}

	recent := history
	if n > recentHistorySize {
		recent = history[n-recentHistorySize:]
	}
	recentCopy := make([]*Assessment, len(recent))
	copy(recentCopy, recent)

	return &UserProfile{
		UserID:           userID,
		TransactionCount: n,
		AvgRiskScore:     mean,
		MaxRiskScore:     max,
		RiskTrend:        trend,
		AnomalyCount:     anomalies,
		IsAnomalous:      anomalies > 0,
		FraudRate:        decimal.NewFromInt(int64(frauds)).Div(decimal.NewFromInt(int64(n))),
		LastActivity:     lastActivity,
		RecentHistory:    recentCopy,
	}, nil
}
