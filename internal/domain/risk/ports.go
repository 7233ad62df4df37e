package risk

import "context"

// FraudScorer turns a feature vector into a fraud probability. The feature
// vector order is a versioned contract shared with the categorical codec;
// implementations trained against one encoding version must refuse blobs
// from another.
//
// Implementations must be safe for concurrent Score calls; Train and Load
// must be mutually exclusive with scoring.
type FraudScorer interface {
	// Score returns a fraud probability in [0, 1]. Untrained implementations
	// return a heuristic estimate rather than failing, so the pipeline stays
	// exercised without a model blob.
	Score(features []float64) float64
	Train(rows [][]float64, labels []int) error
	Save(path string) error
	Load(path string) error
	Trained() bool
	Version() string
}

// AnomalyDetector scores aggregate behavioral features. Decision-function
// convention follows isolation-style detectors: positive is normal, negative
// is anomalous.
type AnomalyDetector interface {
	Score(features []float64) float64
	PredictOutlier(features []float64) bool
	Train(rows [][]float64) error
	Save(path string) error
	Load(path string) error
	Trained() bool
}

// HistoryStore persists the assessment history, the single source of truth
// for user profiles. Implementations must be safe for concurrent use and
// must return defensive copies or otherwise immutable views.
type HistoryStore interface {
	Append(ctx context.Context, a *Assessment) error
	// ListByUser returns the user's assessments oldest first.
	ListByUser(ctx context.Context, userID string) ([]*Assessment, error)
	// List returns all assessments oldest first.
	List(ctx context.Context) ([]*Assessment, error)
}
