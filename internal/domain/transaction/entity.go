package transaction

import "fmt"

// Raw is an incoming transaction before encoding. Every field except UserID
// and Type is optional; pointer fields distinguish "absent" from zero so the
// encoder can apply its documented defaults.
type Raw struct {
	UserID        string `json:"userId"`
	TransactionID string `json:"transactionId,omitempty"`
	Type          string `json:"transactionType"`

	LoginAttempts       *int     `json:"loginAttempts,omitempty"`
	TransactionCount    *int     `json:"transactionCount,omitempty"`
	TransactionVelocity *float64 `json:"transactionVelocity,omitempty"`

	Location            string `json:"location,omitempty"`
	IPAddress           string `json:"ipAddress,omitempty"`
	Timestamp           string `json:"timestamp,omitempty"`
	LastTransaction     string `json:"lastTransaction,omitempty"`
	Utility             string `json:"utility,omitempty"`
	LastTransactionTime *int   `json:"lastTransactionTime,omitempty"`

	// FraudLabel is an optional ground-truth marker (1 = confirmed fraud)
	// carried by historical rows used for training and fraud-rate reporting.
	FraudLabel *int `json:"fraud,omitempty"`
}

// numericRange bounds an optional numeric field in the strict validation path
type numericRange struct {
	field    string
	min, max float64
}

var numericRanges = []numericRange{
	{"loginAttempts", 1, 10},
	{"transactionCount", 1, 50},
	{"transactionVelocity", 0.01, 10.0},
	{"lastTransactionTime", 1, 48},
}

// CategoryChecker reports whether a categorical literal is known to the
// encoding tables. Satisfied by the ml codec.
type CategoryChecker interface {
	Known(category, value string) bool
}

// FieldError describes a single validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate applies the strict validation path: required fields, numeric
// ranges, and categorical membership for the fields the scoring contract is
// sensitive to. Encoding itself never fails; this gate exists so the API can
// reject malformed input before it is recorded.
func (r *Raw) Validate(categories CategoryChecker) []FieldError {
	var errs []FieldError

	if r.UserID == "" {
		errs = append(errs, FieldError{"userId", "missing required field"})
	}
	if r.Type == "" {
		errs = append(errs, FieldError{"transactionType", "missing required field"})
	}

	values := map[string]*float64{
		"loginAttempts":       intAsFloat(r.LoginAttempts),
		"transactionCount":    intAsFloat(r.TransactionCount),
		"transactionVelocity": r.TransactionVelocity,
		"lastTransactionTime": intAsFloat(r.LastTransactionTime),
	}
	for _, nr := range numericRanges {
		v := values[nr.field]
		if v == nil {
			continue
		}
		if *v < nr.min || *v > nr.max {
			errs = append(errs, FieldError{nr.field, fmt.Sprintf("must be between %g and %g", nr.min, nr.max)})
		}
	}

	if r.Type != "" && !categories.Known("transactionType", r.Type) {
		errs = append(errs, FieldError{"transactionType", "unrecognized transaction type"})
	}
	if r.Location != "" && !categories.Known("location", r.Location) {
		errs = append(errs, FieldError{"location", "unrecognized location"})
	}

	return errs
}

func intAsFloat(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
