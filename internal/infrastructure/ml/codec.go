package ml

import "strings"

// CodecVersion identifies the categorical encoding tables. It is persisted
// inside every trained model blob: changing a table's ordering changes the
// meaning of the feature vector, so a blob trained against a different
// version must be rejected rather than silently misread.
const CodecVersion = "2024.1"

// Codec holds the fixed categorical encoding tables shared by the feature
// encoder and model training. Tables are immutable process-wide constants.
type Codec struct {
	tables map[string]map[string]int
}

// NewCodec returns the codec for CodecVersion
func NewCodec() *Codec {
	return &Codec{
		tables: map[string]map[string]int{
			"transactionType": {
				"Credit Card": 0, "Debit Card": 1, "UPI": 2,
			},
			"lastTransaction": {
				"Shopping": 0, "Medical": 1, "Bills": 2, "Food": 3,
				"Entertainment": 4, "Travel": 5, "Institutional": 6, "Transfer": 7,
			},
			"utility": {
				"Payment": 0, "Purchase": 1, "Transfer": 2, "Withdrawal": 3,
				"Deposit": 4, "Bill Payment": 5, "Online Shopping": 6,
			},
			"location": {
				"Mumbai": 0, "Delhi": 1, "Bangalore": 2, "Chennai": 3, "Kolkata": 4,
				"Hyderabad": 5, "Pune": 6, "Ahmedabad": 7, "Jaipur": 8, "Lucknow": 9,
			},
			"ipSubnet": {
				"192.168": 0, "10.0": 1, "172.16": 2, "203.0": 3,
				"115.240": 4, "49.36": 5, "106.51": 6,
			},
		},
	}
}

// Encode maps a categorical literal to its integer code. Unknown values map
// to 0, the most common class, rather than failing: scoring availability is
// prioritized over strict correctness.
func (c *Codec) Encode(category, value string) int {
	return c.tables[category][value]
}

// EncodeIP truncates a dotted-quad address to its first two octets and
// encodes the resulting subnet prefix.
func (c *Codec) EncodeIP(ip string) int {
	parts := strings.Split(ip, ".")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return c.Encode("ipSubnet", strings.Join(parts, "."))
}

// Known reports whether a literal appears in a category's table
func (c *Codec) Known(category, value string) bool {
	_, ok := c.tables[category][value]
	return ok
}

// Version returns the encoding table version
func (c *Codec) Version() string {
	return CodecVersion
}
