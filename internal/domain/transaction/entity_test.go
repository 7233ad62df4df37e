package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableChecker is a fixed category table for validation tests
type tableChecker map[string]map[string]bool

func (t tableChecker) Known(category, value string) bool {
	return t[category][value]
}

var testCategories = tableChecker{
	"transactionType": {"Credit Card": true, "Debit Card": true, "UPI": true},
	"location":        {"Mumbai": true, "Delhi": true},
}

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }

func TestValidate(t *testing.T) {
	t.Run("valid transaction passes", func(t *testing.T) {
		raw := Raw{
			UserID:              "user_1",
			Type:                "Credit Card",
			Location:            "Mumbai",
			LoginAttempts:       intPtr(3),
			TransactionCount:    intPtr(5),
			TransactionVelocity: floatPtr(1.2),
			LastTransactionTime: intPtr(12),
		}
		assert.Empty(t, raw.Validate(testCategories))
	})

	t.Run("missing required fields", func(t *testing.T) {
		raw := Raw{}
		errs := raw.Validate(testCategories)
		require.Len(t, errs, 2)
		assert.Equal(t, "userId", errs[0].Field)
		assert.Equal(t, "transactionType", errs[1].Field)
	})

	t.Run("absent optional fields are not range-checked", func(t *testing.T) {
		raw := Raw{UserID: "user_1", Type: "UPI"}
		assert.Empty(t, raw.Validate(testCategories))
	})

	t.Run("numeric ranges", func(t *testing.T) {
		tests := []struct {
			name  string
			raw   Raw
			field string
		}{
			{"login attempts too high", Raw{UserID: "u", Type: "UPI", LoginAttempts: intPtr(11)}, "loginAttempts"},
			{"login attempts too low", Raw{UserID: "u", Type: "UPI", LoginAttempts: intPtr(0)}, "loginAttempts"},
			{"transaction count too high", Raw{UserID: "u", Type: "UPI", TransactionCount: intPtr(51)}, "transactionCount"},
			{"velocity too low", Raw{UserID: "u", Type: "UPI", TransactionVelocity: floatPtr(0.001)}, "transactionVelocity"},
			{"velocity too high", Raw{UserID: "u", Type: "UPI", TransactionVelocity: floatPtr(10.5)}, "transactionVelocity"},
			{"last transaction time too high", Raw{UserID: "u", Type: "UPI", LastTransactionTime: intPtr(49)}, "lastTransactionTime"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				errs := tt.raw.Validate(testCategories)
				require.Len(t, errs, 1)
				assert.Equal(t, tt.field, errs[0].Field)
			})
		}
	})

	t.Run("boundary values pass", func(t *testing.T) {
		raw := Raw{
			UserID:              "user_1",
			Type:                "UPI",
			LoginAttempts:       intPtr(10),
			TransactionCount:    intPtr(1),
			TransactionVelocity: floatPtr(0.01),
			LastTransactionTime: intPtr(48),
		}
		assert.Empty(t, raw.Validate(testCategories))
	})

	t.Run("unknown categorical values are rejected", func(t *testing.T) {
		raw := Raw{UserID: "user_1", Type: "Cheque", Location: "Atlantis"}
		errs := raw.Validate(testCategories)
		require.Len(t, errs, 2)
		assert.Equal(t, "transactionType", errs[0].Field)
		assert.Equal(t, "location", errs[1].Field)
	})

	t.Run("empty location is not checked", func(t *testing.T) {
		raw := Raw{UserID: "user_1", Type: "UPI"}
		assert.Empty(t, raw.Validate(testCategories))
	})
}
