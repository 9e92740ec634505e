package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultLockTimeout bounds how long a withdrawal waits for the per-user lock.
	DefaultLockTimeout = 5 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// ReconciliationPageSize is the number of users reconciled per page.
	ReconciliationPageSize = 500
)

// Balance read sources.
const (
	BalanceSourceLive       = "live"
	BalanceSourceProjection = "projection"
)

// Projection triggers, used as metric labels and log fields.
const (
	TriggerContributionSaved   = "contribution_saved"
	TriggerWithdrawalProcessed = "withdrawal_processed"
	TriggerRecalculation       = "recalculation"
	TriggerReadPath            = "read_path"
	TriggerReconciliation      = "reconciliation"
	TriggerOutbox              = "outbox"
)

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
