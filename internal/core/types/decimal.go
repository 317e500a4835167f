// Package types holds the shared value types for money and stock
// quantities.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. The alias keeps the full
// decimal.Decimal API available on monetary fields.
type Money = decimal.Decimal

// NewMoney converts a float amount. Fine for literals and tests;
// parsed input should go through decimal.NewFromString.
func NewMoney(f float64) Money {
	return decimal.NewFromFloat(f)
}

// Zero returns the zero amount.
func Zero() Money {
	return decimal.Zero
}

// QuantityScale is the fixed-point denominator for Quantity.
const QuantityScale int64 = 10_000

// Quantity is a stock amount held as a scaled integer with four
// fractional digits. It round-trips a NUMERIC(15,4) column stored as
// BIGINT and compares with plain integer operators.
type Quantity int64

func NewQuantityFromFloat64(v float64) Quantity {
	return Quantity(math.Round(v * float64(QuantityScale)))
}

// Int64Scaled returns the raw scaled value for storage.
func (q Quantity) Int64Scaled() int64 { return int64(q) }

// Decimal converts to decimal for cost and amount math.
func (q Quantity) Decimal() decimal.Decimal { return decimal.New(int64(q), -4) }

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }
func (q Quantity) Neg() Quantity    { return -q }

// String formats with exactly four fractional digits.
func (q Quantity) String() string {
	v := q
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%04d", sign, int64(v)/QuantityScale, int64(v)%QuantityScale)
}

// MarshalJSON emits a JSON number with four fractional digits.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return q.parse(s)
	}
	return q.parse(string(data))
}

// UnmarshalParam parses query and form values. Without it gin would
// treat the underlying int64 as an already scaled value.
func (q *Quantity) UnmarshalParam(param string) error {
	return q.parse(param)
}

func (q *Quantity) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("empty quantity")
	}

	// Exponent form falls back to float parsing.
	if strings.ContainsAny(s, "eE") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("parse quantity: %w", err)
		}
		*q = NewQuantityFromFloat64(f)
		return nil
	}

	sign := int64(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	intStr, fracStr, _ := strings.Cut(s, ".")
	if intStr == "" {
		intStr = "0"
	}
	intPart, err := strconv.ParseInt(intStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse quantity integer part: %w", err)
	}

	// Fractional part is right-padded to four digits; extra digits
	// are truncated.
	if len(fracStr) > 4 {
		fracStr = fracStr[:4]
	}
	for len(fracStr) < 4 {
		fracStr += "0"
	}
	frac, err := strconv.ParseInt(fracStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse quantity fractional part: %w", err)
	}

	*q = Quantity(sign * (intPart*QuantityScale + frac))
	return nil
}
