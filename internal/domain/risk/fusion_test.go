package risk

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		score     string
		anomalous bool
		want      Decision
	}{
		{"high score and anomalous", "0.85", true, DecisionCritical},
		{"high score only", "0.85", false, DecisionHigh},
		{"anomalous only", "0.40", true, DecisionModerate},
		{"neither", "0.40", false, DecisionLow},
		// The fusion boundary is strict: 0.70 exactly is not "high score"
		// even though classification already calls it High.
		{"boundary score not anomalous", "0.70", false, DecisionLow},
		{"boundary score anomalous", "0.70", true, DecisionModerate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := decimal.NewFromString(tt.score)
			if err != nil {
				t.Fatal(err)
			}
			assert.Equal(t, tt.want, Decide(score, tt.anomalous))
		})
	}
}

func TestDecisionLabel(t *testing.T) {
	assert.Equal(t, "CRITICAL RISK - Block Transaction", DecisionCritical.Label())
	assert.Equal(t, "HIGH RISK - Additional Verification Required", DecisionHigh.Label())
	assert.Equal(t, "MODERATE RISK - Monitor Transaction", DecisionModerate.Label())
	assert.Equal(t, "LOW RISK - Approve Transaction", DecisionLow.Label())
}

func TestRecommendations(t *testing.T) {
	t.Run("high risk category", func(t *testing.T) {
		recs := Recommendations(CategoryHigh, false)
		assert.Equal(t, []string{
			"Block transaction immediately",
			"Contact user for verification",
			"Review recent account activity",
		}, recs)
	})

	t.Run("moderate risk category", func(t *testing.T) {
		recs := Recommendations(CategoryModerate, false)
		assert.Equal(t, []string{
			"Request additional authentication",
			"Monitor for suspicious patterns",
		}, recs)
	})

	t.Run("anomalous appends behavioral advice", func(t *testing.T) {
		recs := Recommendations(CategoryModerate, true)
		assert.Equal(t, []string{
			"Request additional authentication",
			"Monitor for suspicious patterns",
			"Flag user for behavioral review",
			"Compare with historical patterns",
		}, recs)
	})

	t.Run("low and normal falls back to a single entry", func(t *testing.T) {
		recs := Recommendations(CategoryLow, false)
		assert.Equal(t, []string{"Transaction appears normal"}, recs)
	})

	t.Run("low but anomalous only carries behavioral advice", func(t *testing.T) {
		recs := Recommendations(CategoryLow, true)
		assert.Equal(t, []string{
			"Flag user for behavioral review",
			"Compare with historical patterns",
		}, recs)
	})
}
