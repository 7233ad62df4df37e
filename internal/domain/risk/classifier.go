package risk

import "github.com/shopspring/decimal"

// Category thresholds. These exact boundaries are a versioned contract:
// downstream fusion and reporting depend on category identity, and trained
// scorers are calibrated against them.
var (
	moderateThreshold = decimal.NewFromFloat(0.30)
	highThreshold     = decimal.NewFromFloat(0.70)
)

// CategoryFromScore maps a fraud probability to its ordinal risk category.
// Boundaries are inclusive on the upper side: 0.30 is Moderate, 0.70 is High.
func CategoryFromScore(score decimal.Decimal) Category {
	switch {
	case score.LessThan(moderateThreshold):
		return CategoryLow
	case score.LessThan(highThreshold):
		return CategoryModerate
	default:
		return CategoryHigh
	}
}
