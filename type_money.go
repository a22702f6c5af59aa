package divitax

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents an exact monetary value in a single currency.
type Money struct {
	value decimal.Decimal
	cur   string
}

// M returns a Money for the given exact amount and currency code.
func M(value decimal.Decimal, currency string) Money {
	return Money{value: value, cur: currency}
}

// ParseMoney parses a broker-reported decimal string into an exact Money.
func ParseMoney(s, currency string) (Money, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{value: v, cur: currency}, nil
}

// currency returns the full go-money currency, never nil.
func (m Money) currency() money.Currency {
	return *money.New(0, m.cur).Currency()
}

// String returns the value formatted with its currency symbol.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

func (m Money) Currency() string          { return m.cur }
func (m Money) Amount() decimal.Decimal   { return m.value }
func (m Money) IsZero() bool              { return m.value.IsZero() }
func (m Money) IsPositive() bool          { return m.value.IsPositive() }
func (m Money) IsNegative() bool          { return m.value.IsNegative() }
func (m Money) Neg() Money                { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Add(n Money) Money         { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Equal(n Money) bool        { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) Mul(r decimal.Decimal) Money {
	return Money{value: m.value.Mul(r), cur: m.cur}
}

// Round2 rounds to two decimals, half up. This is the only rounding mode the
// filing arithmetic uses.
func (m Money) Round2() Money { return Money{value: m.value.Round(2), cur: m.cur} }

// makes the "" currency totally weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + " != " + b.cur)
	}
	return a.cur
}

// subunits maps sub-unit quoting conventions to their unit currency. Amounts
// quoted in a sub-unit are divided by 100 on normalization.
var subunits = map[string]string{
	"GBX": "GBP",
}

var hundred = decimal.NewFromInt(100)

// Unit returns the money rewritten into its unit currency: pence-quoted
// amounts become pounds. Money already in a unit currency is returned as is.
func (m Money) Unit() Money {
	unit, ok := subunits[m.cur]
	if !ok {
		return m
	}
	return Money{value: m.value.Div(hundred), cur: unit}
}
