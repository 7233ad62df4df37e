package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"fraud-risk-engine/internal/domain/risk"
	"fraud-risk-engine/internal/domain/transaction"
	"fraud-risk-engine/internal/infrastructure/ml"
	"fraud-risk-engine/internal/pkg/metrics"
	"fraud-risk-engine/internal/pkg/syncutil"
)

// fraudLabelThreshold is the score above which an unlabeled transaction is
// marked fraudulent for reporting purposes
var fraudLabelThreshold = decimal.NewFromFloat(0.8)

// AnalyzeInput is a validated transaction ready for scoring
type AnalyzeInput struct {
	Raw transaction.Raw
}

// AnalyzeOutput is the full risk verdict for one transaction
type AnalyzeOutput struct {
	TransactionID   string           `json:"transactionId"`
	UserID          string           `json:"userId"`
	RiskScore       decimal.Decimal  `json:"riskScore"`
	RiskCategory    risk.Category    `json:"riskCategory"`
	Decision        risk.Decision    `json:"decision"`
	DecisionLabel   string           `json:"decisionLabel"`
	AnomalyScore    decimal.Decimal  `json:"anomalyScore"`
	IsAnomalous     bool             `json:"isAnomalous"`
	Deviations      []string         `json:"deviations"`
	RiskFactors     []string         `json:"riskFactors"`
	Recommendations []string         `json:"recommendations"`
	ModelVersion    string           `json:"modelVersion"`
	Timestamp       string           `json:"timestamp"`
	Error           string           `json:"error,omitempty"`
}

// AnalyzeUseCase runs the full risk pipeline: validate, encode, score,
// profile, fuse, record. Appending to the history and recomputing the user's
// behavioral state is serialized per user so concurrent requests for the same
// user cannot interleave.
type AnalyzeUseCase struct {
	scorer   risk.FraudScorer
	profiler *ml.Profiler
	encoder  *ml.Encoder
	codec    *ml.Codec
	store    risk.HistoryStore
	locks    *syncutil.KeyMutex
	metrics  *metrics.Collector
	logger   *slog.Logger

	txSeq atomic.Int64
}

// NewAnalyzeUseCase wires the risk pipeline
func NewAnalyzeUseCase(
	scorer risk.FraudScorer,
	profiler *ml.Profiler,
	encoder *ml.Encoder,
	codec *ml.Codec,
	store risk.HistoryStore,
	collector *metrics.Collector,
	logger *slog.Logger,
) *AnalyzeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeUseCase{
		scorer:   scorer,
		profiler: profiler,
		encoder:  encoder,
		codec:    codec,
		store:    store,
		locks:    &syncutil.KeyMutex{},
		metrics:  collector,
		logger:   logger,
	}
}

// Execute analyzes a single transaction through the strict validation path
func (uc *AnalyzeUseCase) Execute(ctx context.Context, input AnalyzeInput) (*AnalyzeOutput, error) {
	if errs := input.Raw.Validate(uc.codec); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", transaction.ErrValidation, errs[0].Error())
	}
	return uc.analyze(ctx, &input.Raw)
}

// analyze is the lenient core shared by the strict path and bulk ingestion
func (uc *AnalyzeUseCase) analyze(ctx context.Context, raw *transaction.Raw) (*AnalyzeOutput, error) {
	start := time.Now()

	encoded := uc.encoder.Encode(raw)
	score := decimal.NewFromFloat(uc.scorer.Score(encoded.Vector())).Round(4)
	category := risk.CategoryFromScore(score)

	behavior := uc.profiler.Assess(raw.UserID, encoded)
	decision := risk.Decide(score, behavior.IsAnomalous)
	recommendations := risk.Recommendations(category, behavior.IsAnomalous)

	txID := raw.TransactionID
	if txID == "" {
		txID = fmt.Sprintf("TXN_%06d", uc.txSeq.Add(1))
	}

	assessment := risk.NewAssessment(txID, raw.UserID, score, category)
	assessment.TransactionType = raw.Type
	assessment.Location = raw.Location
	assessment.AnomalyScore = behavior.AnomalyScore
	assessment.IsAnomaly = behavior.IsAnomalous
	assessment.ModelVersion = uc.scorer.Version()
	assessment.FraudLabel = fraudLabel(raw, score)

	// Append and observe under the per-user lock so history order and the
	// behavioral profile stay consistent for concurrent same-user requests.
	unlock := uc.locks.Lock(raw.UserID)
	err := uc.store.Append(ctx, assessment)
	if err == nil {
		uc.profiler.Observe(raw.UserID, encoded)
	}
	unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to record assessment: %w", err)
	}

	if uc.metrics != nil {
		uc.metrics.RecordAnalysis(string(category), string(decision), behavior.IsAnomalous, time.Since(start))
	}

	return &AnalyzeOutput{
		TransactionID:   txID,
		UserID:          raw.UserID,
		RiskScore:       score,
		RiskCategory:    category,
		Decision:        decision,
		DecisionLabel:   decision.Label(),
		AnomalyScore:    behavior.AnomalyScore,
		IsAnomalous:     behavior.IsAnomalous,
		Deviations:      behavior.Deviations,
		RiskFactors:     behavior.RiskFactors,
		Recommendations: recommendations,
		ModelVersion:    assessment.ModelVersion,
		Timestamp:       assessment.Timestamp,
	}, nil
}

func fraudLabel(raw *transaction.Raw, score decimal.Decimal) int {
	if raw.FraudLabel != nil {
		return *raw.FraudLabel
	}
	if score.GreaterThan(fraudLabelThreshold) {
		return 1
	}
	return 0
}

// BatchInput contains multiple transactions to analyze in order
type BatchInput struct {
	Transactions []transaction.Raw
}

// BatchOutput preserves input order; failed rows carry an Error entry in
// place of a verdict
type BatchOutput struct {
	Results []AnalyzeOutput `json:"results"`
	Summary BatchSummary    `json:"summary"`
}

// BatchSummary aggregates batch outcomes
type BatchSummary struct {
	Total     int `json:"total"`
	Analyzed  int `json:"analyzed"`
	Failed    int `json:"failed"`
	HighRisk  int `json:"highRisk"`
	Anomalous int `json:"anomalous"`
}

// ExecuteBatch analyzes transactions sequentially, preserving input order.
// A row that fails validation does not abort the batch.
func (uc *AnalyzeUseCase) ExecuteBatch(ctx context.Context, input BatchInput) (*BatchOutput, error) {
	results := make([]AnalyzeOutput, len(input.Transactions))
	summary := BatchSummary{Total: len(input.Transactions)}

	for i := range input.Transactions {
		raw := input.Transactions[i]
		result, err := uc.Execute(ctx, AnalyzeInput{Raw: raw})
		if err != nil {
			results[i] = AnalyzeOutput{
				TransactionID: raw.TransactionID,
				UserID:        raw.UserID,
				Error:         err.Error(),
			}
			summary.Failed++
			continue
		}

		results[i] = *result
		summary.Analyzed++
		if result.RiskCategory == risk.CategoryHigh {
			summary.HighRisk++
		}
		if result.IsAnomalous {
			summary.Anomalous++
		}
	}

	return &BatchOutput{Results: results, Summary: summary}, nil
}

// UserProfile recomputes a user's profile from their recorded history
func (uc *AnalyzeUseCase) UserProfile(ctx context.Context, userID string) (*risk.UserProfile, error) {
	history, err := uc.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) == 0 {
		return nil, risk.ErrUserNotFound
	}
	return risk.AggregateProfile(userID, history)
}

// TransactionFilter narrows the transaction listing
type TransactionFilter struct {
	UserID       string
	RiskCategory string
	Limit        int
}

// Transactions lists recorded assessments newest first, optionally filtered
func (uc *AnalyzeUseCase) Transactions(ctx context.Context, filter TransactionFilter) ([]*risk.Assessment, error) {
	all, err := uc.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assessments: %w", err)
	}

	filtered := make([]*risk.Assessment, 0, len(all))
	for _, a := range all {
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if filter.RiskCategory != "" && !strings.EqualFold(string(a.RiskCategory), filter.RiskCategory) {
			continue
		}
		filtered = append(filtered, a)
	}

	// Newest first
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp > filtered[j].Timestamp
	})

	if filter.Limit > 0 && len(filtered) > filter.Limit {
		filtered = filtered[:filter.Limit]
	}
	return filtered, nil
}

// Dashboard summarizes the recorded history for the operator view
type Dashboard struct {
	TotalTransactions int             `json:"totalTransactions"`
	HighRiskCount     int             `json:"highRiskCount"`
	AnomalousUsers    int             `json:"anomalousUsers"`
	FraudDetectionRate decimal.Decimal `json:"fraudDetectionRate"`
	RiskDistribution  map[string]int  `json:"riskDistribution"`
	AvgRiskScore      decimal.Decimal `json:"avgRiskScore"`
	ModelVersion      string          `json:"modelVersion"`
}

// DashboardStats computes the operator dashboard from the full history
func (uc *AnalyzeUseCase) DashboardStats(ctx context.Context) (*Dashboard, error) {
	all, err := uc.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assessments: %w", err)
	}

	dash := &Dashboard{
		RiskDistribution: map[string]int{
			string(risk.CategoryLow):      0,
			string(risk.CategoryModerate): 0,
			string(risk.CategoryHigh):     0,
		},
		ModelVersion: uc.scorer.Version(),
	}
	dash.TotalTransactions = len(all)
	if len(all) == 0 {
		dash.FraudDetectionRate = decimal.Zero
		dash.AvgRiskScore = decimal.Zero
		return dash, nil
	}

	sum := decimal.Zero
	actualFrauds := 0
	detectedFrauds := 0
	anomalousUsers := map[string]struct{}{}
	for _, a := range all {
		dash.RiskDistribution[string(a.RiskCategory)]++
		if a.RiskCategory == risk.CategoryHigh {
			dash.HighRiskCount++
		}
		if a.IsAnomaly {
			anomalousUsers[a.UserID] = struct{}{}
		}
		if a.FraudLabel == 1 {
			actualFrauds++
			if a.RiskCategory == risk.CategoryHigh {
				detectedFrauds++
			}
		}
		sum = sum.Add(a.RiskScore)
	}

	n := decimal.NewFromInt(int64(len(all)))
	dash.AnomalousUsers = len(anomalousUsers)
	// detection rate is flagged-high frauds over labeled frauds, not prevalence
	if actualFrauds > 0 {
		dash.FraudDetectionRate = decimal.NewFromInt(int64(detectedFrauds)).
			Div(decimal.NewFromInt(int64(actualFrauds))).Round(4)
	} else {
		dash.FraudDetectionRate = decimal.Zero
	}
	dash.AvgRiskScore = sum.Div(n).Round(4)
	return dash, nil
}
