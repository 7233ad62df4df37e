package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"sync"

	"fraud-risk-engine/internal/domain/risk"
)

// ProfileFeatureCount is the length of the aggregate behavioral feature
// vector consumed by the detector (see Profiler.aggregateFeatures).
const ProfileFeatureCount = 12

// contamination is the assumed share of anomalous users in training data.
// The decision threshold is placed at this quantile of training scores.
const contamination = 0.10

var errNotTrainable = errors.New("heuristic detector cannot be trained")

// OutlierDetector is an isolation-style anomaly detector over standardized
// aggregate features. Decision function follows the usual convention:
// positive for inliers, negative for outliers, zero at the contamination
// quantile of the training distribution.
type OutlierDetector struct {
	mu sync.RWMutex

	trained      bool
	codecVersion string
	means        []float64
	stds         []float64
	offset       float64
}

type detectorBlob struct {
	CodecVersion string    `json:"codec_version"`
	Trained      bool      `json:"trained"`
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
	Offset       float64   `json:"offset"`
}

// NewOutlierDetector creates an untrained detector
func NewOutlierDetector() *OutlierDetector {
	return &OutlierDetector{codecVersion: CodecVersion}
}

// Train fits the detector: feature standardization parameters plus the
// decision offset at the contamination quantile of raw training scores.
func (d *OutlierDetector) Train(rows [][]float64) error {
	if len(rows) == 0 {
		return fmt.Errorf("no training rows")
	}
	for i, row := range rows {
		if len(row) != ProfileFeatureCount {
			return fmt.Errorf("row %d: expected %d features, got %d", i, ProfileFeatureCount, len(row))
		}
	}

	means, stds := profileStandardization(rows)

	raw := make([]float64, len(rows))
	for i, row := range rows {
		raw[i] = rawDeviationScore(row, means, stds)
	}
	sort.Float64s(raw)
	idx := int(contamination * float64(len(raw)))
	if idx >= len(raw) {
		idx = len(raw) - 1
	}
	offset := raw[idx]

	d.mu.Lock()
	d.means = means
	d.stds = stds
	d.offset = offset
	d.trained = true
	d.codecVersion = CodecVersion
	d.mu.Unlock()
	return nil
}

// Score returns the decision-function value for an aggregate feature row
func (d *OutlierDetector) Score(features []float64) float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.trained {
		return 0
	}
	return rawDeviationScore(features, d.means, d.stds) - d.offset
}

// PredictOutlier reports whether the row falls below the decision boundary
func (d *OutlierDetector) PredictOutlier(features []float64) bool {
	return d.Score(features) < 0
}

// Trained reports whether the detector has been fitted or loaded
func (d *OutlierDetector) Trained() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.trained
}

// Save persists the detector as an opaque blob
func (d *OutlierDetector) Save(path string) error {
	d.mu.RLock()
	blob := detectorBlob{
		CodecVersion: d.codecVersion,
		Trained:      d.trained,
		Means:        d.means,
		Stds:         d.stds,
		Offset:       d.offset,
	}
	d.mu.RUnlock()

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to encode detector blob: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write detector blob: %w", err)
	}
	return nil
}

// Load restores a persisted detector, rejecting codec version mismatches
func (d *OutlierDetector) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read detector blob: %w", err)
	}
	var blob detectorBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("failed to decode detector blob: %w", err)
	}
	if blob.Trained && blob.CodecVersion != CodecVersion {
		return fmt.Errorf("%w: blob %q, codec %q", risk.ErrCodecVersionMismatch, blob.CodecVersion, CodecVersion)
	}

	d.mu.Lock()
	d.trained = blob.Trained
	d.codecVersion = blob.CodecVersion
	d.means = blob.Means
	d.stds = blob.Stds
	d.offset = blob.Offset
	d.mu.Unlock()
	return nil
}

// rawDeviationScore maps the mean absolute z-score across features into a
// decision-style value: 0.5 for a perfectly average row, negative once the
// average deviation exceeds one standard deviation.
func rawDeviationScore(features, means, stds []float64) float64 {
	total := 0.0
	for i, v := range features {
		if i >= len(means) {
			break
		}
		total += math.Abs((v - means[i]) / stds[i])
	}
	avg := total / float64(len(means))
	return 0.5 - avg/2
}

func profileStandardization(rows [][]float64) (means, stds []float64) {
	means = make([]float64, ProfileFeatureCount)
	stds = make([]float64, ProfileFeatureCount)
	n := float64(len(rows))

	for _, row := range rows {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

// HeuristicDetector is the injectable fallback strategy used when no trained
// detector is available. It scores a transaction feature vector from the
// same threshold table as the deviation detectors, plus a small bounded
// jitter, so output ranges stay testable with a seeded source.
type HeuristicDetector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristicDetector creates a fallback detector with the given source.
// Tests pass a fixed seed; production wiring seeds from the clock.
func NewHeuristicDetector(rng *rand.Rand) *HeuristicDetector {
	return &HeuristicDetector{rng: rng}
}

// Score derives an anomaly score in [-0.30, 0.30] from the transaction
// feature vector: each fired deviation pulls the score down by 0.15.
func (h *HeuristicDetector) Score(features []float64) float64 {
	score := 0.25
	if len(features) > FeatLoginAttempts && features[FeatLoginAttempts] > behaviorThresholds.loginAttempts.deviation {
		score -= 0.15
	}
	if len(features) > FeatVelocity && features[FeatVelocity] > behaviorThresholds.velocity.deviation {
		score -= 0.15
	}
	if len(features) > FeatTransactionCount && features[FeatTransactionCount] > behaviorThresholds.txCount.deviation {
		score -= 0.15
	}

	h.mu.Lock()
	jitter := (h.rng.Float64() - 0.5) * 0.1
	h.mu.Unlock()
	return score + jitter
}

// PredictOutlier applies the fixed negative cutoff to a fresh score
func (h *HeuristicDetector) PredictOutlier(features []float64) bool {
	return h.Score(features) < anomalyCutoff
}

// Train is unsupported: the heuristic strategy is fixed
func (h *HeuristicDetector) Train(rows [][]float64) error { return errNotTrainable }

// Save is a no-op: there is nothing to persist
func (h *HeuristicDetector) Save(path string) error { return nil }

// Load is a no-op
func (h *HeuristicDetector) Load(path string) error { return nil }

// Trained always reports false
func (h *HeuristicDetector) Trained() bool { return false }
