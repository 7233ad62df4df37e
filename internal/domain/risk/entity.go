package risk

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category is the ordinal risk label derived from a fraud probability
type Category string

const (
	CategoryLow      Category = "Low"
	CategoryModerate Category = "Moderate"
	CategoryHigh     Category = "High"
)

// Decision is the fused action derived from probability and anomaly signal
type Decision string

const (
	DecisionLow      Decision = "LOW"
	DecisionModerate Decision = "MODERATE"
	DecisionHigh     Decision = "HIGH"
	DecisionCritical Decision = "CRITICAL"
)

// Label returns the operator-facing description of the decision
func (d Decision) Label() string {
	switch d {
	case DecisionCritical:
		return "CRITICAL RISK - Block Transaction"
	case DecisionHigh:
		return "HIGH RISK - Additional Verification Required"
	case DecisionModerate:
		return "MODERATE RISK - Monitor Transaction"
	default:
		return "LOW RISK - Approve Transaction"
	}
}

// Trend describes the direction of a user's risk over their history
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendStable     Trend = "stable"
)

// Assessment is the outcome of risk analysis on a single transaction.
// Immutable once created; appended to the per-user transaction history,
// which is the single source of truth for profile aggregation.
type Assessment struct {
	ID            uuid.UUID       `json:"id"`
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`

	TransactionType string `json:"transactionType,omitempty"`
	Location        string `json:"location,omitempty"`

	RiskScore    decimal.Decimal `json:"riskScore"`    // fraud probability, 0.0 to 1.0
	RiskCategory Category        `json:"riskCategory"`
	AnomalyScore decimal.Decimal `json:"anomalyScore"` // more negative = more anomalous
	IsAnomaly    bool            `json:"isAnomaly"`

	// FraudLabel is the ground-truth fraud marker (1 = fraud) when known,
	// otherwise simulated from the score so fraud-rate reporting stays exercised.
	FraudLabel   int    `json:"fraud"`
	ModelVersion string `json:"modelVersion,omitempty"`

	// Timestamp is RFC3339; profile aggregation orders these lexicographically.
	Timestamp string `json:"timestamp"`
}

// NewAssessment creates an assessment recorded at the current wall-clock time.
func NewAssessment(transactionID, userID string, score decimal.Decimal, category Category) *Assessment {
	return &Assessment{
		ID:            uuid.New(),
		TransactionID: transactionID,
		UserID:        userID,
		RiskScore:     score,
		RiskCategory:  category,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

// BehaviorAnalysis is the behavioral anomaly signal for a transaction's user.
// Trained and untrained assessment modes produce this same shape.
type BehaviorAnalysis struct {
	UserID       string          `json:"userId"`
	AnomalyScore decimal.Decimal `json:"anomalyScore"`
	IsAnomalous  bool            `json:"isAnomalous"`

	// Deviations are coarse behavioral flags; RiskFactors are finer-grained
	// observations with lower thresholds and the offending values attached.
	// They answer different questions and are intentionally kept separate.
	Deviations  []string `json:"deviations"`
	RiskFactors []string `json:"riskFactors"`

	Recommendation string `json:"recommendation"`
}

// UserProfile is the derived aggregate over a user's transaction history.
// It is a disposable cache: recomputed in full from the history on demand.
type UserProfile struct {
	UserID           string          `json:"userId"`
	TransactionCount int             `json:"transactionCount"`
	AvgRiskScore     decimal.Decimal `json:"avgRiskScore"`
	MaxRiskScore     decimal.Decimal `json:"maxRiskScore"`
	RiskTrend        Trend           `json:"riskTrend"`
	AnomalyCount     int             `json:"anomalyCount"`
	IsAnomalous      bool            `json:"isAnomalous"`
	FraudRate        decimal.Decimal `json:"fraudRate"`
	LastActivity     string          `json:"lastActivity"`

	// RecentHistory holds at most the last 10 assessments, most recent last.
	RecentHistory []*Assessment `json:"recentHistory"`
}
