package risk

import "errors"

var (
	// ErrEmptyHistory signals profile aggregation over an empty history.
	// Callers must only aggregate users with at least one recorded assessment,
	// so hitting this is a programming error, not an input error.
	ErrEmptyHistory = errors.New("cannot aggregate profile from empty history")

	// ErrUserNotFound is returned when a user has no recorded transactions
	ErrUserNotFound = errors.New("user not found")

	// ErrAssessmentNotFound is returned when an assessment cannot be located
	ErrAssessmentNotFound = errors.New("assessment not found")

	// ErrModelNotTrained is returned by train-dependent operations on an
	// untrained scorer or detector
	ErrModelNotTrained = errors.New("model is not trained")

	// ErrCodecVersionMismatch is returned when a persisted model blob was
	// trained against a different categorical encoding version
	ErrCodecVersionMismatch = errors.New("model encoding version does not match codec version")
)
