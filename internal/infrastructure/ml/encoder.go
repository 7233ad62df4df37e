package ml

import (
	"log/slog"
	"time"

	"fraud-risk-engine/internal/domain/transaction"
)

// FeatureCount is the fixed length of the feature vector
const FeatureCount = 12

// Feature vector slot indexes. The order is a versioned contract: scorers
// are trained and invoked against exactly this layout.
const (
	FeatLoginAttempts = iota
	FeatTransactionCount
	FeatLastTransactionTime
	FeatVelocity
	FeatHour
	FeatDayOfWeek
	FeatMonth
	FeatTransactionType
	FeatLastTransaction
	FeatUtility
	FeatLocation
	FeatIPSubnet
)

// Defaults substituted for absent or malformed fields
const (
	defaultLoginAttempts       = 1
	defaultTransactionCount    = 1
	defaultVelocity            = 0.5
	defaultLastTransactionTime = 24

	defaultTransactionType = "Credit Card"
	defaultLastTransaction = "Shopping"
	defaultUtility         = "Payment"
	defaultLocation        = "Mumbai"
	defaultIPAddress       = "192.168.1.1"
)

// timestampFormats are tried in order; the first that parses wins. The last
// entry covers timestamps the pipeline itself records.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000000",
	"2006-01-02T15:04:05.000000",
	"02/01/2006 15:04:05",
	time.RFC3339,
}

// Encoded is a transaction normalized for model input: numeric fields with
// defaults applied, timestamp components extracted, and categorical fields
// reduced to their integer codes.
type Encoded struct {
	LoginAttempts       int
	TransactionCount    int
	LastTransactionTime int
	Velocity            float64

	Hour      int
	DayOfWeek int // Monday=0 .. Sunday=6
	Month     int

	TypeCode     int
	LastTxCode   int
	UtilityCode  int
	LocationCode int
	IPSubnetCode int

	// TimestampParsed is false when the wall clock was substituted
	TimestampParsed bool
}

// Vector returns the feature vector in contract order. Length is always
// FeatureCount and every element is finite.
func (e *Encoded) Vector() []float64 {
	return []float64{
		float64(e.LoginAttempts),
		float64(e.TransactionCount),
		float64(e.LastTransactionTime),
		e.Velocity,
		float64(e.Hour),
		float64(e.DayOfWeek),
		float64(e.Month),
		float64(e.TypeCode),
		float64(e.LastTxCode),
		float64(e.UtilityCode),
		float64(e.LocationCode),
		float64(e.IPSubnetCode),
	}
}

// Encoder normalizes raw transactions into feature vectors. Pure: the only
// state is the immutable codec, plus a logger for fallback warnings.
type Encoder struct {
	codec  *Codec
	logger *slog.Logger

	// now is swappable for tests of the timestamp fallback
	now func() time.Time
}

// NewEncoder creates an encoder over the given codec
func NewEncoder(codec *Codec, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{codec: codec, logger: logger, now: time.Now}
}

// Encode is total: any missing or malformed field silently falls back to its
// documented default, so scoring is never blocked by bad input.
func (enc *Encoder) Encode(raw *transaction.Raw) *Encoded {
	e := &Encoded{
		LoginAttempts:       defaultLoginAttempts,
		TransactionCount:    defaultTransactionCount,
		LastTransactionTime: defaultLastTransactionTime,
		Velocity:            defaultVelocity,
	}

	if raw.LoginAttempts != nil {
		e.LoginAttempts = *raw.LoginAttempts
	}
	if raw.TransactionCount != nil {
		e.TransactionCount = *raw.TransactionCount
	}
	if raw.LastTransactionTime != nil {
		e.LastTransactionTime = *raw.LastTransactionTime
	}
	if raw.TransactionVelocity != nil {
		e.Velocity = *raw.TransactionVelocity
	}

	ts, parsed := enc.parseTimestamp(raw.Timestamp)
	e.Hour = ts.Hour()
	e.DayOfWeek = (int(ts.Weekday()) + 6) % 7
	e.Month = int(ts.Month())
	e.TimestampParsed = parsed

	e.TypeCode = enc.codec.Encode("transactionType", orDefault(raw.Type, defaultTransactionType))
	e.LastTxCode = enc.codec.Encode("lastTransaction", orDefault(raw.LastTransaction, defaultLastTransaction))
	e.UtilityCode = enc.codec.Encode("utility", orDefault(raw.Utility, defaultUtility))
	e.LocationCode = enc.codec.Encode("location", orDefault(raw.Location, defaultLocation))
	e.IPSubnetCode = enc.codec.EncodeIP(orDefault(raw.IPAddress, defaultIPAddress))

	return e
}

func (enc *Encoder) parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return enc.now(), false
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	enc.logger.Warn("could not parse timestamp, substituting current time",
		slog.String("timestamp", value))
	return enc.now(), false
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
