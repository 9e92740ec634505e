package domain

import "time"

// Event types
const (
	EventTypeContributionSaved             = "contribution.saved"
	EventTypeWithdrawalProcessed           = "withdrawal.processed"
	EventTypeBalanceRecalculationRequested = "balance.recalculation_requested"
)

// Aggregate types
const (
	AggregateTypeUser         = "user"
	AggregateTypeContribution = "contribution"
	AggregateTypeWithdrawal   = "withdrawal"
)

// Event is a domain event dispatched after the producing transaction commits.
// AggregateID is the contribution or withdrawal that produced it.
type Event struct {
	OccurredAt  time.Time
	Type        string
	UserID      string
	AggregateID string
}

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// UserID extracts the user id carried by every payload.
func (e *OutboxEvent) UserID() string {
	userID, _ := e.Payload["user_id"].(string)
	return userID
}
