package ml

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/shopspring/decimal"

	"fraud-risk-engine/internal/domain/risk"
)

// anomalyCutoff is the fixed negative threshold below which a heuristic
// anomaly score flags the transaction
const anomalyCutoff = -0.1

// behaviorThresholds is the single configuration source for both detector
// tiers: "deviation" drives the coarse flags, "factor" the finer-grained
// risk factors. Keeping them in one table prevents the two tiers from
// drifting apart silently.
var behaviorThresholds = struct {
	loginAttempts struct{ deviation, factor float64 }
	velocity      struct{ deviation, factor float64 }
	txCount       struct{ deviation, factor float64 }
	nightStart    int
	nightEnd      int
}{
	loginAttempts: struct{ deviation, factor float64 }{3, 2},
	velocity:      struct{ deviation, factor float64 }{2.0, 1.5},
	txCount:       struct{ deviation, factor float64 }{10, 8},
	nightStart:    22, // activity after this hour is flagged
	nightEnd:      6,  // activity before this hour is flagged
}

// Profiler maintains one evolving behavioral profile per user and produces
// the anomaly signal for each new transaction. Per-user histories grow
// unbounded by design; durability is an external concern.
type Profiler struct {
	mu      sync.RWMutex
	history map[string][]*Encoded

	detector risk.AnomalyDetector // trained, cohort-level
	fallback risk.AnomalyDetector // heuristic strategy
	logger   *slog.Logger
}

// NewProfiler creates a profiler. The fallback detector is consulted until
// the primary detector has been trained or loaded.
func NewProfiler(detector, fallback risk.AnomalyDetector, logger *slog.Logger) *Profiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiler{
		history:  make(map[string][]*Encoded),
		detector: detector,
		fallback: fallback,
		logger:   logger,
	}
}

// Assess computes the behavioral anomaly signal for a transaction against
// the user's profile. Trained and untrained modes return the same shape, so
// decision fusion is mode-agnostic.
func (p *Profiler) Assess(userID string, e *Encoded) *risk.BehaviorAnalysis {
	analysis := &risk.BehaviorAnalysis{
		UserID:      userID,
		Deviations:  p.deviations(e),
		RiskFactors: p.riskFactors(e),
	}

	var score float64
	if p.detector.Trained() {
		agg := p.aggregateFeatures(userID, e)
		score = p.detector.Score(agg)
		analysis.IsAnomalous = p.detector.PredictOutlier(agg)
	} else {
		score = p.fallback.Score(e.Vector())
		analysis.IsAnomalous = score < anomalyCutoff
	}
	analysis.AnomalyScore = decimal.NewFromFloat(score).Round(4)

	if analysis.IsAnomalous {
		analysis.Recommendation = "Monitor closely"
	} else {
		analysis.Recommendation = "Normal behavior"
	}
	return analysis
}

// Observe appends a transaction to the user's behavioral history
func (p *Profiler) Observe(userID string, e *Encoded) {
	p.mu.Lock()
	p.history[userID] = append(p.history[userID], e)
	p.mu.Unlock()
}

// HistorySize returns the number of observed transactions for a user
func (p *Profiler) HistorySize(userID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.history[userID])
}

// UserAggregates returns one aggregate feature row per observed user, the
// training matrix for the cohort-level detector.
func (p *Profiler) UserAggregates() [][]float64 {
	p.mu.RLock()
	users := make([]string, 0, len(p.history))
	for id := range p.history {
		users = append(users, id)
	}
	p.mu.RUnlock()

	rows := make([][]float64, 0, len(users))
	for _, id := range users {
		rows = append(rows, p.aggregateFeatures(id, nil))
	}
	return rows
}

func (p *Profiler) deviations(e *Encoded) []string {
	deviations := []string{}
	if float64(e.LoginAttempts) > behaviorThresholds.loginAttempts.deviation {
		deviations = append(deviations, "High login attempts detected")
	}
	if e.Velocity > behaviorThresholds.velocity.deviation {
		deviations = append(deviations, "Unusual transaction velocity")
	}
	if float64(e.TransactionCount) > behaviorThresholds.txCount.deviation {
		deviations = append(deviations, "High daily transaction count")
	}
	return deviations
}

func (p *Profiler) riskFactors(e *Encoded) []string {
	factors := []string{}
	if float64(e.LoginAttempts) > behaviorThresholds.loginAttempts.factor {
		factors = append(factors, fmt.Sprintf("Multiple login attempts: %d", e.LoginAttempts))
	}
	if e.Velocity > behaviorThresholds.velocity.factor {
		factors = append(factors, fmt.Sprintf("High transaction velocity: %.2f", e.Velocity))
	}
	if float64(e.TransactionCount) > behaviorThresholds.txCount.factor {
		factors = append(factors, fmt.Sprintf("High daily transactions: %d", e.TransactionCount))
	}
	if e.TimestampParsed && (e.Hour < behaviorThresholds.nightEnd || e.Hour > behaviorThresholds.nightStart) {
		factors = append(factors, fmt.Sprintf("Unusual time: %d:00", e.Hour))
	}
	return factors
}

// aggregateFeatures computes the per-user aggregate row consumed by the
// trained detector. Order is part of the detector's training contract:
// [avgLogin, stdLogin, avgCount, stdCount, avgVelocity, stdVelocity,
// preferredType, preferredLocation, preferredHour, uniqueLocations,
// uniqueIPSubnets, frequency].
func (p *Profiler) aggregateFeatures(userID string, current *Encoded) []float64 {
	p.mu.RLock()
	stored := p.history[userID]
	txs := make([]*Encoded, 0, len(stored)+1)
	txs = append(txs, stored...)
	p.mu.RUnlock()

	if current != nil {
		txs = append(txs, current)
	}
	if len(txs) == 0 {
		return make([]float64, ProfileFeatureCount)
	}

	var logins, counts, velocities []float64
	types := map[int]int{}
	locations := map[int]int{}
	hours := map[int]int{}
	subnets := map[int]struct{}{}

	for _, t := range txs {
		logins = append(logins, float64(t.LoginAttempts))
		counts = append(counts, float64(t.TransactionCount))
		velocities = append(velocities, t.Velocity)
		types[t.TypeCode]++
		locations[t.LocationCode]++
		hours[t.Hour]++
		subnets[t.IPSubnetCode] = struct{}{}
	}

	avgLogin, stdLogin := meanStd(logins)
	avgCount, stdCount := meanStd(counts)
	avgVel, stdVel := meanStd(velocities)

	return []float64{
		avgLogin, stdLogin,
		avgCount, stdCount,
		avgVel, stdVel,
		float64(mode(types)),
		float64(mode(locations)),
		float64(mode(hours)),
		float64(len(locations)),
		float64(len(subnets)),
		float64(len(txs)),
	}
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	for _, v := range values {
		mean += v
	}
	mean /= n
	for _, v := range values {
		d := v - mean
		std += d * d
	}
	return mean, math.Sqrt(std / n)
}

func mode(counts map[int]int) int {
	best, bestCount := 0, -1
	for v, c := range counts {
		// Ties break toward the smaller code for determinism
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}
