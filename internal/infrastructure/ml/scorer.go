package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	"fraud-risk-engine/internal/domain/risk"
)

const (
	heuristicVersion = "heuristic-v1"
	trainedVersion   = "logistic-v1"

	trainEpochs       = 300
	trainLearningRate = 0.1
)

// Scorer implements the FraudScorer contract with a logistic model over the
// contract feature vector. Until trained (or loaded), scoring falls back to
// a deterministic heuristic driven by login attempts and velocity, so the
// rest of the pipeline stays exercised without a model blob.
type Scorer struct {
	mu sync.RWMutex

	trained      bool
	codecVersion string
	weights      []float64
	bias         float64

	// standardization parameters captured at training time
	means []float64
	stds  []float64
}

// scorerBlob is the opaque persistence format
type scorerBlob struct {
	Version      string    `json:"version"`
	CodecVersion string    `json:"codec_version"`
	Trained      bool      `json:"trained"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Means        []float64 `json:"means"`
	Stds         []float64 `json:"stds"`
}

// NewScorer creates an untrained scorer bound to the current codec version
func NewScorer() *Scorer {
	return &Scorer{codecVersion: CodecVersion}
}

// Score returns a fraud probability in [0, 1]
func (s *Scorer) Score(features []float64) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.trained {
		return heuristicScore(features)
	}

	z := s.bias
	for i, w := range s.weights {
		if i >= len(features) {
			break
		}
		z += w * s.standardize(i, features[i])
	}
	return sigmoid(z)
}

// heuristicScore estimates risk from login attempts and velocity alone.
// Deterministic and bounded to [0.1, 0.95] so fallback output is testable.
func heuristicScore(features []float64) float64 {
	score := 0.1
	if len(features) > FeatLoginAttempts {
		score += features[FeatLoginAttempts] / 10.0
	}
	if len(features) > FeatVelocity {
		score += features[FeatVelocity] / 5.0
	}
	return math.Min(score, 0.95)
}

// Train fits the logistic model with batch gradient descent over
// standardized features. Labels are 0 or 1.
func (s *Scorer) Train(rows [][]float64, labels []int) error {
	if len(rows) == 0 || len(rows) != len(labels) {
		return fmt.Errorf("training data mismatch: %d rows, %d labels", len(rows), len(labels))
	}
	for i, row := range rows {
		if len(row) != FeatureCount {
			return fmt.Errorf("row %d: expected %d features, got %d", i, FeatureCount, len(row))
		}
	}

	means, stds := standardizationParams(rows)
	scaled := make([][]float64, len(rows))
	for i, row := range rows {
		sr := make([]float64, FeatureCount)
		for j, v := range row {
			sr[j] = (v - means[j]) / stds[j]
		}
		scaled[i] = sr
	}

	weights := make([]float64, FeatureCount)
	bias := 0.0
	n := float64(len(scaled))

	for epoch := 0; epoch < trainEpochs; epoch++ {
		gradW := make([]float64, FeatureCount)
		gradB := 0.0
		for i, row := range scaled {
			z := bias
			for j, w := range weights {
				z += w * row[j]
			}
			err := sigmoid(z) - float64(labels[i])
			for j, v := range row {
				gradW[j] += err * v
			}
			gradB += err
		}
		for j := range weights {
			weights[j] -= trainLearningRate * gradW[j] / n
		}
		bias -= trainLearningRate * gradB / n
	}

	s.mu.Lock()
	s.weights = weights
	s.bias = bias
	s.means = means
	s.stds = stds
	s.trained = true
	s.codecVersion = CodecVersion
	s.mu.Unlock()
	return nil
}

// Save persists the model as an opaque blob
func (s *Scorer) Save(path string) error {
	s.mu.RLock()
	blob := scorerBlob{
		Version:      s.version(),
		CodecVersion: s.codecVersion,
		Trained:      s.trained,
		Weights:      s.weights,
		Bias:         s.bias,
		Means:        s.means,
		Stds:         s.stds,
	}
	s.mu.RUnlock()

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("failed to encode scorer blob: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write scorer blob: %w", err)
	}
	return nil
}

// Load restores a persisted model. Blobs trained against a different codec
// version are rejected: the feature semantics would not match.
func (s *Scorer) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read scorer blob: %w", err)
	}
	var blob scorerBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return fmt.Errorf("failed to decode scorer blob: %w", err)
	}
	if blob.Trained && blob.CodecVersion != CodecVersion {
		return fmt.Errorf("%w: blob %q, codec %q", risk.ErrCodecVersionMismatch, blob.CodecVersion, CodecVersion)
	}

	s.mu.Lock()
	s.trained = blob.Trained
	s.codecVersion = blob.CodecVersion
	s.weights = blob.Weights
	s.bias = blob.Bias
	s.means = blob.Means
	s.stds = blob.Stds
	s.mu.Unlock()
	return nil
}

// Trained reports whether a fitted model is loaded
func (s *Scorer) Trained() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trained
}

// Version identifies the scoring strategy in effect
func (s *Scorer) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version()
}

func (s *Scorer) version() string {
	if s.trained {
		return trainedVersion
	}
	return heuristicVersion
}

func (s *Scorer) standardize(i int, v float64) float64 {
	if i >= len(s.means) {
		return v
	}
	return (v - s.means[i]) / s.stds[i]
}

func standardizationParams(rows [][]float64) (means, stds []float64) {
	means = make([]float64, FeatureCount)
	stds = make([]float64, FeatureCount)
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

func sigmoid(x float64) float64 {
	if x > 30 {
		return 1
	}
	if x < -30 {
		return 0
	}
	return 1.0 / (1.0 + math.Exp(-x))
}
