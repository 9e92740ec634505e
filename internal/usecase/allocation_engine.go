package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
)

// WithdrawalPersistenceInput is an approved withdrawal ready to be allocated.
type WithdrawalPersistenceInput struct {
	RequestedAt     time.Time
	RequestedAmount *domain.Money
	WithdrawalID    string
	UserID          string
	Type            domain.WithdrawalType
	Notes           string
	ApprovedAmount  domain.Money
}

// AllocationResult is the outcome of a committed allocation.
type AllocationResult struct {
	Withdrawal  *domain.Withdrawal
	Allocations []domain.Allocation
}

// AllocationEngine distributes approved withdrawals across contributions.
// It implements WithdrawalPersistencePort.
type AllocationEngine struct {
	txManager        TransactionManager
	contributionRepo ContributionRepository
	withdrawalRepo   WithdrawalRepository
	outboxRepo       OutboxRepository
	idGen            IDGenerator
	retrier          Retrier
	publisher        EventPublisher
	clock            Clock
	logger           zerolog.Logger
	metrics          *metrics.Metrics
}

// NewAllocationEngine creates a new AllocationEngine.
func NewAllocationEngine(
	txManager TransactionManager,
	contributionRepo ContributionRepository,
	withdrawalRepo WithdrawalRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	publisher EventPublisher,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *AllocationEngine {
	return &AllocationEngine{
		txManager:        txManager,
		contributionRepo: contributionRepo,
		withdrawalRepo:   withdrawalRepo,
		outboxRepo:       outboxRepo,
		idGen:            idGen,
		retrier:          retrier,
		publisher:        publisher,
		clock:            clock,
		logger:           logger.With().Str("component", "allocation_engine").Logger(),
		metrics:          metrics,
	}
}

// Process implements WithdrawalPersistencePort.
func (e *AllocationEngine) Process(ctx context.Context, input WithdrawalPersistenceInput) error {
	_, err := e.Allocate(ctx, input)
	return err
}

// Allocate redeems input.ApprovedAmount from the user's contributions,
// oldest first, and records the withdrawal in one transaction.
func (e *AllocationEngine) Allocate(ctx context.Context, input WithdrawalPersistenceInput) (*AllocationResult, error) {
	if input.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}

	if !input.ApprovedAmount.IsPositive() {
		return nil, fmt.Errorf("%w: approved amount must be positive", domain.ErrInvalidInput)
	}

	start := time.Now()

	var result *AllocationResult
	err := e.retrier.Retry(ctx, func() error {
		r, err := e.allocate(ctx, input)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAllocationInconsistency) {
			e.logger.Error().Err(err).
				Str("user_id", input.UserID).
				Str("approved_amount", input.ApprovedAmount.String()).
				Msg("allocation could not back approved amount")
			if e.metrics != nil {
				e.metrics.AllocationInconsistencies.Inc()
			}
		}
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.AllocationDuration.Observe(time.Since(start).Seconds())
		e.metrics.WithdrawalAmount.Observe(input.ApprovedAmount.Float64())
	}

	// The withdrawal is committed; a failed dispatch only delays the projection.
	event := domain.Event{
		Type:        domain.EventTypeWithdrawalProcessed,
		UserID:      input.UserID,
		AggregateID: result.Withdrawal.ID,
		OccurredAt:  result.Withdrawal.ProcessedAt,
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn().Err(err).
			Str("user_id", input.UserID).
			Str("withdrawal_id", result.Withdrawal.ID).
			Msg("failed to dispatch withdrawal processed event")
	}

	return result, nil
}

func (e *AllocationEngine) allocate(ctx context.Context, input WithdrawalPersistenceInput) (*AllocationResult, error) {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := e.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock and re-read; the validator's snapshot may be stale.
	contributions, err := e.contributionRepo.FindByUserIDForUpdate(txCtx, tx, input.UserID)
	if err != nil {
		return nil, err
	}

	allocations, remaining, err := domain.AllocateOldestFirst(contributions, input.ApprovedAmount, input.RequestedAt)
	if err != nil {
		return nil, err
	}

	if err := domain.CheckAllocationLeftover(remaining); err != nil {
		return nil, err
	}

	now := e.clock.Now()

	byID := make(map[string]*domain.Contribution, len(contributions))
	for _, c := range contributions {
		byID[c.ID] = c
	}

	withdrawalID := input.WithdrawalID
	if withdrawalID == "" {
		withdrawalID = e.idGen.Generate()
	}

	requestedAmount := input.ApprovedAmount
	if input.RequestedAmount != nil {
		requestedAmount = *input.RequestedAmount
	}

	withdrawal := &domain.Withdrawal{
		ID:              withdrawalID,
		UserID:          input.UserID,
		Type:            input.Type,
		RequestedAmount: requestedAmount,
		ApprovedAmount:  input.ApprovedAmount,
		Status:          domain.WithdrawalStatusProcessed,
		RequestedAt:     input.RequestedAt,
		ProcessedAt:     now,
		Notes:           input.Notes,
		Items:           make([]domain.WithdrawalItem, 0, len(allocations)),
	}

	for _, allocation := range allocations {
		if err := e.contributionRepo.UpdateRedeemed(txCtx, tx, byID[allocation.ContributionID], now); err != nil {
			return nil, err
		}

		withdrawal.Items = append(withdrawal.Items, domain.WithdrawalItem{
			ID:             e.idGen.Generate(),
			WithdrawalID:   withdrawal.ID,
			ContributionID: allocation.ContributionID,
			Amount:         allocation.Amount,
		})
	}

	if err := e.withdrawalRepo.Create(txCtx, tx, withdrawal); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            e.idGen.Generate(),
		AggregateID:   withdrawal.ID,
		AggregateType: domain.AggregateTypeWithdrawal,
		EventType:     domain.EventTypeWithdrawalProcessed,
		Payload: map[string]any{
			"withdrawal_id":   withdrawal.ID,
			"user_id":         withdrawal.UserID,
			"type":            string(withdrawal.Type),
			"approved_amount": withdrawal.ApprovedAmount.String(),
			"processed_at":    now.Format(time.RFC3339Nano),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := e.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	return &AllocationResult{Withdrawal: withdrawal, Allocations: allocations}, nil
}
