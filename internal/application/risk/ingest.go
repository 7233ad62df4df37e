package risk

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"fraud-risk-engine/internal/domain/risk"
	"fraud-risk-engine/internal/domain/transaction"
	"fraud-risk-engine/internal/infrastructure/ml"
	"fraud-risk-engine/internal/pkg/metrics"
)

// minTrainingRows is the smallest dataset worth fitting models to
const minTrainingRows = 10

// IngestUseCase feeds historical transaction datasets through the analysis
// pipeline and retrains the models from the accumulated history. Ingestion is
// lenient: malformed rows fall back to encoder defaults instead of being
// rejected, matching how historical exports tend to arrive.
type IngestUseCase struct {
	analyze  *AnalyzeUseCase
	scorer   risk.FraudScorer
	detector risk.AnomalyDetector
	profiler *ml.Profiler
	encoder  *ml.Encoder
	store    risk.HistoryStore
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewIngestUseCase wires the bulk ingestion pipeline
func NewIngestUseCase(
	analyze *AnalyzeUseCase,
	scorer risk.FraudScorer,
	detector risk.AnomalyDetector,
	profiler *ml.Profiler,
	encoder *ml.Encoder,
	store risk.HistoryStore,
	collector *metrics.Collector,
	logger *slog.Logger,
) *IngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		analyze:  analyze,
		scorer:   scorer,
		detector: detector,
		profiler: profiler,
		encoder:  encoder,
		store:    store,
		metrics:  collector,
		logger:   logger,
	}
}

// IngestResult summarizes one dataset ingestion
type IngestResult struct {
	RowsRead     int             `json:"rowsRead"`
	RowsAnalyzed int             `json:"rowsAnalyzed"`
	RowsSkipped  int             `json:"rowsSkipped"`
	Results      []AnalyzeOutput `json:"results"`
	ModelTrained bool            `json:"modelTrained"`
	ModelVersion string          `json:"modelVersion"`
}

// ExecuteCSV ingests a CSV dataset. The header row names the columns; order
// does not matter. Results preserve row order. After ingestion the models are
// retrained when enough history has accumulated.
func (uc *IngestUseCase) ExecuteCSV(ctx context.Context, r io.Reader) (*IngestResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns["userId"]; !ok {
		return nil, fmt.Errorf("CSV is missing required column userId")
	}

	result := &IngestResult{}
	var rows [][]float64
	var labels []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.RowsSkipped++
			uc.logger.Warn("skipping malformed CSV row", slog.Any("error", err))
			continue
		}
		result.RowsRead++

		raw := rawFromRecord(columns, record)
		if raw.UserID == "" {
			result.RowsSkipped++
			result.Results = append(result.Results, AnalyzeOutput{Error: "missing userId"})
			continue
		}

		out, err := uc.analyze.analyze(ctx, raw)
		if err != nil {
			result.RowsSkipped++
			result.Results = append(result.Results, AnalyzeOutput{
				UserID: raw.UserID,
				Error:  err.Error(),
			})
			continue
		}
		result.RowsAnalyzed++
		result.Results = append(result.Results, *out)

		rows = append(rows, uc.encoder.Encode(raw).Vector())
		labels = append(labels, fraudLabel(raw, out.RiskScore))
	}

	if uc.metrics != nil {
		uc.metrics.RecordIngestedRows(result.RowsRead)
	}

	if len(rows) >= minTrainingRows {
		if err := uc.train(rows, labels); err != nil {
			uc.logger.Warn("model training after ingestion failed", slog.Any("error", err))
		} else {
			result.ModelTrained = true
		}
	}
	result.ModelVersion = uc.scorer.Version()

	return result, nil
}

// rawFromRecord maps a CSV record onto the raw transaction shape. Absent or
// unparsable cells stay nil so the encoder applies its defaults.
func rawFromRecord(columns map[string]int, record []string) *transaction.Raw {
	cell := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	raw := &transaction.Raw{
		UserID:          cell("userId"),
		TransactionID:   cell("transactionId"),
		Type:            cell("transactionType"),
		Location:        cell("location"),
		IPAddress:       cell("ipAddress"),
		Timestamp:       cell("timestamp"),
		LastTransaction: cell("lastTransaction"),
		Utility:         cell("utility"),
	}

	if v, err := strconv.Atoi(cell("loginAttempts")); err == nil {
		raw.LoginAttempts = &v
	}
	if v, err := strconv.Atoi(cell("transactionCount")); err == nil {
		raw.TransactionCount = &v
	}
	if v, err := strconv.ParseFloat(cell("transactionVelocity"), 64); err == nil {
		raw.TransactionVelocity = &v
	}
	if v, err := strconv.Atoi(cell("lastTransactionTime")); err == nil {
		raw.LastTransactionTime = &v
	}
	if v, err := strconv.Atoi(cell("fraud")); err == nil {
		raw.FraudLabel = &v
	}

	return raw
}

// train refits both models: the fraud scorer from the ingested feature rows
// and labels, the anomaly detector from per-user aggregate rows.
func (uc *IngestUseCase) train(rows [][]float64, labels []int) error {
	if err := uc.scorer.Train(rows, labels); err != nil {
		return fmt.Errorf("failed to train scorer: %w", err)
	}

	aggregates := uc.profiler.UserAggregates()
	if len(aggregates) >= 2 {
		if err := uc.detector.Train(aggregates); err != nil {
			return fmt.Errorf("failed to train anomaly detector: %w", err)
		}
	}

	uc.logger.Info("models retrained",
		slog.Int("rows", len(rows)),
		slog.Int("users", len(aggregates)),
		slog.String("version", uc.scorer.Version()))
	return nil
}

// SaveModels persists both model blobs
func (uc *IngestUseCase) SaveModels(scorerPath, detectorPath string) error {
	if scorerPath != "" {
		if err := uc.scorer.Save(scorerPath); err != nil {
			return fmt.Errorf("failed to save scorer: %w", err)
		}
	}
	if detectorPath != "" && uc.detector.Trained() {
		if err := uc.detector.Save(detectorPath); err != nil {
			return fmt.Errorf("failed to save anomaly detector: %w", err)
		}
	}
	return nil
}
