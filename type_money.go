package rebalance

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// Money represents a monetary value as a major-unit decimal with a currency.
type Money struct {
	value decimal.Decimal
	cur   string
}

func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// currency returns the money's currency
func (m Money) currency() money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, m.cur).Currency()
}

// String returns the string representation of the money value.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

// Currency returns the money's currency code.
func (m Money) Currency() string { return m.cur }

// Decimal returns the underlying decimal major-unit value.
func (m Money) Decimal() decimal.Decimal { return m.value }

// InexactFloat64 returns the nearest float64 of the value, for reporting only.
func (m Money) InexactFloat64() float64 { return m.value.InexactFloat64() }

func (m Money) Equal(n Money) bool              { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                    { return m.value.IsZero() }
func (m Money) IsPositive() bool                { return m.value.IsPositive() }
func (m Money) IsNegative() bool                { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool           { return m.value.LessThan(n.value) }
func (m Money) LessThanOrEqual(n Money) bool    { return m.value.LessThanOrEqual(n.value) }
func (m Money) GreaterThan(n Money) bool        { return m.value.GreaterThan(n.value) }
func (m Money) GreaterThanOrEqual(n Money) bool { return m.value.GreaterThanOrEqual(n.value) }
func (m Money) Neg() Money                      { return Money{value: m.value.Neg(), cur: m.cur} }

// MulShares scales a per-share amount by a share count.
func (m Money) MulShares(n int64) Money {
	return Money{value: m.value.Mul(decimal.NewFromInt(n)), cur: m.cur}
}

// Scale multiplies the amount by an arbitrary decimal factor.
func (m Money) Scale(f decimal.Decimal) Money {
	return Money{value: m.value.Mul(f), cur: m.cur}
}

// Shares returns floor(m / price), the whole number of shares the amount can
// buy at the given unit price.
func (m Money) Shares(price Money) int64 {
	return m.value.Div(price.value).Floor().IntPart()
}

// SharesCeil returns ceil(m / price), the whole number of shares needed to
// cover the amount at the given unit price.
func (m Money) SharesCeil(price Money) int64 {
	return m.value.Div(price.value).Ceil().IntPart()
}

// binary operators.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// makes the "" currency totally weak.
func cur(A, B Money) string {
	if A.cur == "" {
		return B.cur
	}
	return A.cur
}

// MarshalJSON implements the json.Marshaler interface.
func (m Money) MarshalJSON() ([]byte, error) { return m.value.MarshalJSON() }

func (m *Money) UnmarshalJSON(bytes []byte) error { return m.value.UnmarshalJSON(bytes) }
