package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		name        string
		input       decimal.Decimal
		want        string
		expectError error
	}{
		{name: "rounds to two places", input: decimal.RequireFromString("10.005"), want: "10.01"},
		{name: "pads integer", input: decimal.NewFromInt(7), want: "7.00"},
		{name: "zero", input: decimal.Zero, want: "0.00"},
		{name: "negative rejected", input: decimal.NewFromInt(-1), expectError: ErrNegativeMoney},
		{name: "tiny negative rounds to zero", input: decimal.RequireFromString("-0.001"), want: "0.00"},
		{name: "maximum accepted", input: decimal.RequireFromString(MaxMoneyAmount), want: MaxMoneyAmount},
		{
			name:        "above maximum rejected",
			input:       decimal.RequireFromString(MaxMoneyAmount).Add(decimal.RequireFromString("0.01")),
			expectError: ErrMoneyOverflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewMoney(tt.input)
			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.String() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, m.String())
			}
		})
	}
}

func TestNewMoneyFromFloat(t *testing.T) {
	t.Parallel()

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := NewMoneyFromFloat(v); !errors.Is(err, ErrInvalidMoney) {
			t.Fatalf("expected ErrInvalidMoney for %v, got %v", v, err)
		}
	}

	m, err := NewMoneyFromFloat(0.1 + 0.2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.String() != "0.30" {
		t.Fatalf("expected 0.30, got %s", m.String())
	}
}

func TestParseMoney(t *testing.T) {
	t.Parallel()

	if _, err := ParseMoney("abc"); !errors.Is(err, ErrInvalidMoney) {
		t.Fatalf("expected ErrInvalidMoney, got %v", err)
	}

	m, err := ParseMoney("120.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Equal(MustMoney("120.50")) {
		t.Fatalf("expected 120.50, got %s", m)
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	t.Parallel()

	a := MustMoney("100.10")
	b := MustMoney("0.20")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.String() != "100.30" {
		t.Fatalf("expected 100.30, got %s", sum)
	}

	diff, err := a.Subtract(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff.String() != "99.90" {
		t.Fatalf("expected 99.90, got %s", diff)
	}

	if _, err := b.Subtract(a); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if !b.SubtractOrZero(a).IsZero() {
		t.Fatalf("expected SubtractOrZero to clamp at zero")
	}

	if _, err := MustMoney(MaxMoneyAmount).Add(MustMoney("0.01")); !errors.Is(err, ErrMoneyOverflow) {
		t.Fatalf("expected ErrMoneyOverflow, got %v", err)
	}
}

func TestMoney_NeverNegative(t *testing.T) {
	t.Parallel()

	values := []string{"0", "0.01", "1.99", "50", "1000.37"}
	for _, x := range values {
		for _, y := range values {
			a, b := MustMoney(x), MustMoney(y)

			sum, err := a.Add(b)
			if err != nil || sum.Decimal().IsNegative() {
				t.Fatalf("add(%s, %s) = %s, %v", a, b, sum, err)
			}

			diff, err := a.Subtract(b)
			if b.GreaterThan(a) {
				if !errors.Is(err, ErrInsufficientFunds) {
					t.Fatalf("subtract(%s, %s) expected ErrInsufficientFunds, got %v", a, b, err)
				}
				continue
			}
			if err != nil || diff.Decimal().IsNegative() {
				t.Fatalf("subtract(%s, %s) = %s, %v", a, b, diff, err)
			}
		}
	}
}

func TestMoney_Comparisons(t *testing.T) {
	t.Parallel()

	small, big := MustMoney("1.00"), MustMoney("1.01")

	if !big.GreaterThan(small) || small.GreaterThan(big) {
		t.Fatalf("GreaterThan ordering is wrong")
	}
	if !small.GreaterThanOrEqual(MustMoney("1")) {
		t.Fatalf("expected 1.00 >= 1")
	}
	if !Min(big, small, MustMoney("3")).Equal(small) {
		t.Fatalf("expected Min to return the smallest amount")
	}

	var zero Money
	if !zero.IsZero() || zero.IsPositive() || zero.String() != "0.00" {
		t.Fatalf("zero value should be a valid zero amount, got %s", zero)
	}
}
