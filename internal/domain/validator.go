package domain

import (
	"fmt"
	"time"
)

// WithdrawalValidator decides the approved amount of a withdrawal request.
type WithdrawalValidator struct {
	calculator *BalanceCalculator
}

// NewWithdrawalValidator creates a validator using calculator for balances.
func NewWithdrawalValidator(calculator *BalanceCalculator) *WithdrawalValidator {
	return &WithdrawalValidator{calculator: calculator}
}

// Validate returns the approved amount for request against contributions at ref.
func (v *WithdrawalValidator) Validate(request *WithdrawalRequest, contributions []*Contribution, ref time.Time) (Money, error) {
	for _, c := range contributions {
		if c.UserID != request.UserID() {
			return Money{}, fmt.Errorf("%w: ownership: contribution %s does not belong to user %s",
				ErrInvalidWithdrawal, c.ID, request.UserID())
		}
	}

	summary, err := v.calculator.Summary(contributions, ref)
	if err != nil {
		return Money{}, err
	}

	if summary.Available.IsZero() {
		return Money{}, fmt.Errorf("%w: no available balance", ErrInsufficientBalance)
	}

	if request.Type() == WithdrawalTypeTotal {
		return summary.Available, nil
	}

	requested, ok := request.RequestedAmount()
	if !ok || !requested.IsPositive() {
		return Money{}, fmt.Errorf("%w: missing-amount", ErrInvalidWithdrawal)
	}

	if requested.GreaterThan(summary.Available) {
		return Money{}, fmt.Errorf("%w: exceeds-available: requested %s, available %s",
			ErrInsufficientBalance, requested, summary.Available)
	}

	return requested, nil
}
