package domain

import (
	"fmt"
	"time"
)

// AllocationTolerance is the largest leftover accepted after an allocation scan.
// Amounts carry two decimals, so any leftover cent fails the allocation.
var AllocationTolerance = MustMoney("0.00")

// Allocation assigns part of an approved amount to one contribution.
type Allocation struct {
	ContributionID string
	Amount         Money
}

// AllocateOldestFirst redeems amount from contributions in the given order,
// taking from each at most what is available at ref. Contributions are
// mutated through Redeem. It returns the allocations and the unallocated leftover.
// Callers must pass contributions sorted by ContributedAt ascending.
func AllocateOldestFirst(contributions []*Contribution, amount Money, ref time.Time) ([]Allocation, Money, error) {
	remaining := amount
	allocations := make([]Allocation, 0, len(contributions))

	for _, c := range contributions {
		if remaining.IsZero() {
			break
		}

		redeemable := Min(remaining, c.AvailableAmount(ref), c.RemainingBalance())
		if !redeemable.IsPositive() {
			continue
		}

		if err := c.Redeem(redeemable); err != nil {
			return nil, remaining, err
		}

		next, err := remaining.Subtract(redeemable)
		if err != nil {
			return nil, remaining, err
		}
		remaining = next

		allocations = append(allocations, Allocation{ContributionID: c.ID, Amount: redeemable})
	}

	return allocations, remaining, nil
}

// CheckAllocationLeftover fails with ErrAllocationInconsistency when remaining
// is above AllocationTolerance.
func CheckAllocationLeftover(remaining Money) error {
	if remaining.GreaterThan(AllocationTolerance) {
		return fmt.Errorf("%w: %s left unallocated", ErrAllocationInconsistency, remaining)
	}

	return nil
}
