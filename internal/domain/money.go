package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the number of fractional digits every amount is rounded to.
	MoneyPlaces = 2

	// MaxMoneyAmount is the largest amount a numeric(15,2) column can hold.
	MaxMoneyAmount = "9999999999999.99"
)

var maxMoney = decimal.RequireFromString(MaxMoneyAmount)

// Money is a non-negative amount with two decimal places of precision.
// The zero value is a valid zero amount.
type Money struct {
	amount decimal.Decimal
}

// NewMoney normalizes d to two decimal places.
func NewMoney(d decimal.Decimal) (Money, error) {
	rounded := d.Round(MoneyPlaces)

	if rounded.IsNegative() {
		return Money{}, ErrNegativeMoney
	}

	if rounded.GreaterThan(maxMoney) {
		return Money{}, ErrMoneyOverflow
	}

	return Money{amount: rounded}, nil
}

// NewMoneyFromFloat builds Money from a float, rejecting NaN and infinities.
func NewMoneyFromFloat(value float64) (Money, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Money{}, ErrInvalidMoney
	}

	return NewMoney(decimal.NewFromFloat(value))
}

// ParseMoney parses a decimal string such as "120.50".
func ParseMoney(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, ErrInvalidMoney
	}

	return NewMoney(d)
}

// MustMoney parses value and panics on failure. Intended for constants and tests.
func MustMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}

	return m
}

// ZeroMoney returns a zero amount.
func ZeroMoney() Money {
	return Money{amount: decimal.Zero}
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	return NewMoney(m.amount.Add(other.amount))
}

// Subtract returns m - other, failing when the result would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if other.amount.GreaterThan(m.amount) {
		return Money{}, ErrInsufficientFunds
	}

	return NewMoney(m.amount.Sub(other.amount))
}

// SubtractOrZero returns max(0, m - other).
func (m Money) SubtractOrZero(other Money) Money {
	if other.amount.GreaterThanOrEqual(m.amount) {
		return ZeroMoney()
	}

	return Money{amount: m.amount.Sub(other.amount)}
}

// Min returns the smallest of the given amounts.
func Min(first Money, rest ...Money) Money {
	lowest := first
	for _, m := range rest {
		if m.amount.LessThan(lowest.amount) {
			lowest = m
		}
	}

	return lowest
}

func (m Money) GreaterThan(other Money) bool {
	return m.amount.GreaterThan(other.amount)
}

func (m Money) GreaterThanOrEqual(other Money) bool {
	return m.amount.GreaterThanOrEqual(other.amount)
}

func (m Money) Equal(other Money) bool {
	return m.amount.Equal(other.amount)
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

// Decimal exposes the underlying normalized decimal.
func (m Money) Decimal() decimal.Decimal {
	return m.amount
}

// Float64 returns the amount as a float for reporting (metrics, logs).
func (m Money) Float64() float64 {
	return m.amount.InexactFloat64()
}

// String returns the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.amount.StringFixed(MoneyPlaces)
}
