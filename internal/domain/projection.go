package domain

import "time"

// BalanceProjection is a cached snapshot of a user's balance. It is always
// derivable from the user's contributions and is never the source of truth.
type BalanceProjection struct {
	CalculatedAt    time.Time
	UserID          string
	TotalAmount     Money
	AvailableAmount Money
	LockedAmount    Money
}

// NewBalanceProjection builds a projection from a summary computed at calculatedAt.
func NewBalanceProjection(userID string, summary BalanceSummary, calculatedAt time.Time) *BalanceProjection {
	return &BalanceProjection{
		UserID:          userID,
		TotalAmount:     summary.Total,
		AvailableAmount: summary.Available,
		LockedAmount:    summary.Locked,
		CalculatedAt:    calculatedAt.UTC(),
	}
}

// SameBalance reports whether p and other hold identical amounts.
func (p *BalanceProjection) SameBalance(other *BalanceProjection) bool {
	return p.TotalAmount.Equal(other.TotalAmount) &&
		p.AvailableAmount.Equal(other.AvailableAmount) &&
		p.LockedAmount.Equal(other.LockedAmount)
}
