package domain

import "time"

// BalanceSummary aggregates the availability of a set of contributions.
type BalanceSummary struct {
	Total     Money
	Available Money
	Matured   Money
	Locked    Money
}

// BalanceCalculator sums per-contribution availability into a user balance.
type BalanceCalculator struct{}

// NewBalanceCalculator creates a BalanceCalculator.
func NewBalanceCalculator() *BalanceCalculator {
	return &BalanceCalculator{}
}

// Summary returns the total, available, matured and locked amounts of
// contributions at ref. Locked is max(0, total - matured).
func (c *BalanceCalculator) Summary(contributions []*Contribution, ref time.Time) (BalanceSummary, error) {
	total := ZeroMoney()
	available := ZeroMoney()
	matured := ZeroMoney()

	var err error
	for _, contribution := range contributions {
		a := contribution.Availability(ref)

		if total, err = total.Add(a.Total); err != nil {
			return BalanceSummary{}, err
		}
		if available, err = available.Add(a.Available); err != nil {
			return BalanceSummary{}, err
		}
		if matured, err = matured.Add(a.Matured); err != nil {
			return BalanceSummary{}, err
		}
	}

	return BalanceSummary{
		Total:     total,
		Available: available,
		Matured:   matured,
		Locked:    total.SubtractOrZero(matured),
	}, nil
}
