package transaction

import "errors"

var (
	// ErrValidation is returned when strict validation rejects a transaction
	ErrValidation = errors.New("transaction validation failed")

	// ErrMissingUserID is returned when the user ID is absent
	ErrMissingUserID = errors.New("userId is required")

	// ErrMissingType is returned when the transaction type is absent
	ErrMissingType = errors.New("transactionType is required")
)
