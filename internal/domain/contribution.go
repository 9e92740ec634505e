package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// CarencyDate is the instant before which a contribution is fully locked.
type CarencyDate struct {
	at time.Time
}

// NewCarencyDate validates and wraps t.
func NewCarencyDate(t time.Time) (CarencyDate, error) {
	if t.IsZero() {
		return CarencyDate{}, fmt.Errorf("%w: invalid carency date", ErrInvalidContribution)
	}

	return CarencyDate{at: t.UTC()}, nil
}

// Time returns the carency instant.
func (c CarencyDate) Time() time.Time {
	return c.at
}

// HasMatured reports whether ref is at or after the carency instant.
func (c CarencyDate) HasMatured(ref time.Time) bool {
	return !c.at.After(ref)
}

// VestingEntry releases a slice of a contribution at ReleaseAt.
type VestingEntry struct {
	ID        string
	Amount    Money
	ReleaseAt time.Time
}

// HasMatured reports whether the entry is released at ref.
func (v VestingEntry) HasMatured(ref time.Time) bool {
	return !v.ReleaseAt.After(ref)
}

// Contribution is a single deposit into a user's pension ledger.
type Contribution struct {
	ContributedAt  time.Time
	CarencyDate    *CarencyDate
	ID             string
	UserID         string
	Vestings       []VestingEntry
	Amount         Money
	RedeemedAmount Money
}

// Availability is the state of one contribution at a reference instant.
type Availability struct {
	Total     Money
	Matured   Money
	Available Money
	Locked    Money
}

// NewContribution validates the contribution invariants and sorts vestings by release time.
func NewContribution(c Contribution) (*Contribution, error) {
	if strings.TrimSpace(c.ID) == "" {
		return nil, fmt.Errorf("%w: id must be a non-empty string", ErrInvalidContribution)
	}

	if strings.TrimSpace(c.UserID) == "" {
		return nil, fmt.Errorf("%w: userId must be a non-empty string", ErrInvalidContribution)
	}

	if c.ContributedAt.IsZero() {
		return nil, fmt.Errorf("%w: contribution date must be a valid date", ErrInvalidContribution)
	}

	if c.CarencyDate != nil && c.CarencyDate.Time().Before(c.ContributedAt) {
		return nil, fmt.Errorf("%w: carency date cannot be before the contribution date", ErrInvalidContribution)
	}

	if c.RedeemedAmount.GreaterThan(c.Amount) {
		return nil, fmt.Errorf("%w: redeemed amount cannot exceed contribution amount", ErrInvalidContribution)
	}

	vestings := make([]VestingEntry, len(c.Vestings))
	copy(vestings, c.Vestings)

	for _, v := range vestings {
		if !v.Amount.IsPositive() {
			return nil, fmt.Errorf("%w: vesting amount must be greater than zero", ErrInvalidContribution)
		}
		if v.ReleaseAt.IsZero() {
			return nil, fmt.Errorf("%w: vesting release date must be a valid date", ErrInvalidContribution)
		}
	}

	sort.SliceStable(vestings, func(i, j int) bool {
		return vestings[i].ReleaseAt.Before(vestings[j].ReleaseAt)
	})

	c.ContributedAt = c.ContributedAt.UTC()
	c.Vestings = vestings

	return &c, nil
}

// RemainingBalance is max(0, amount - redeemed).
func (c *Contribution) RemainingBalance() Money {
	return c.Amount.SubtractOrZero(c.RedeemedAmount)
}

// MaturedAmount is the part of the contribution past its eligibility rule at ref,
// irrespective of redemption.
func (c *Contribution) MaturedAmount(ref time.Time) Money {
	if len(c.Vestings) > 0 {
		matured := ZeroMoney()
		for _, v := range c.Vestings {
			if !v.HasMatured(ref) {
				continue
			}
			// Vesting amounts are bounded by the contribution amount, so the
			// running sum is capped as soon as it passes it.
			next, err := matured.Add(v.Amount)
			if err != nil || next.GreaterThan(c.Amount) {
				return c.Amount
			}
			matured = next
		}

		return Min(matured, c.Amount)
	}

	if c.CarencyDate == nil || c.CarencyDate.HasMatured(ref) {
		return c.Amount
	}

	return ZeroMoney()
}

// Availability computes total, matured, available and locked amounts at ref.
// Redemption is deducted from matured value first and the result is then
// capped by the remaining balance.
func (c *Contribution) Availability(ref time.Time) Availability {
	matured := c.MaturedAmount(ref)
	availableBeforeCap := matured.SubtractOrZero(c.RedeemedAmount)

	return Availability{
		Total:     c.Amount,
		Matured:   matured,
		Available: Min(availableBeforeCap, c.RemainingBalance()),
		Locked:    c.Amount.SubtractOrZero(matured),
	}
}

// AvailableAmount is shorthand for Availability(ref).Available.
func (c *Contribution) AvailableAmount(ref time.Time) Money {
	return c.Availability(ref).Available
}

// Redeem increases the redeemed amount. Only the allocation engine calls it.
func (c *Contribution) Redeem(amount Money) error {
	if amount.GreaterThan(c.RemainingBalance()) {
		return fmt.Errorf("%w: redeem %s exceeds remaining balance %s of contribution %s",
			ErrInsufficientFunds, amount, c.RemainingBalance(), c.ID)
	}

	redeemed, err := c.RedeemedAmount.Add(amount)
	if err != nil {
		return err
	}

	c.RedeemedAmount = redeemed

	return nil
}
