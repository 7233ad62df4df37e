package risk

import "github.com/shopspring/decimal"

// Decide fuses the fraud probability and the behavioral anomaly flag into a
// single ordinal action. Note the probability test is strictly greater than
// 0.70, unlike classification where 0.70 itself is already High.
func Decide(score decimal.Decimal, isAnomalous bool) Decision {
	highRisk := score.GreaterThan(highThreshold)
	switch {
	case highRisk && isAnomalous:
		return DecisionCritical
	case highRisk:
		return DecisionHigh
	case isAnomalous:
		return DecisionModerate
	default:
		return DecisionLow
	}
}

// Recommendations derives itemized advice from the risk category and anomaly
// flag. This is independent of the fused decision: the two outputs answer
// different questions and may disagree in tone.
func Recommendations(category Category, isAnomalous bool) []string {
	var recs []string

	switch category {
	case CategoryHigh:
		recs = append(recs,
			"Block transaction immediately",
			"Contact user for verification",
			"Review recent account activity",
		)
	case CategoryModerate:
		recs = append(recs,
			"Request additional authentication",
			"Monitor for suspicious patterns",
		)
	}

	if isAnomalous {
		recs = append(recs,
			"Flag user for behavioral review",
			"Compare with historical patterns",
		)
	}

	if len(recs) == 0 {
		return []string{"Transaction appears normal"}
	}
	return recs
}
