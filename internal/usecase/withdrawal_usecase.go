package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
)

// Withdrawal request outcomes, used as metric labels.
const (
	OutcomeApproved = "approved"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// WithdrawalUseCase validates withdrawal requests and hands approved ones to
// the persistence port while holding the user's lock.
type WithdrawalUseCase struct {
	userRepo         UserRepository
	contributionRepo ContributionRepository
	withdrawalRepo   WithdrawalRepository
	validator        *domain.WithdrawalValidator
	calculator       *domain.BalanceCalculator
	persistence      WithdrawalPersistencePort
	locker           UserLocker
	idGen            IDGenerator
	clock            Clock
	logger           zerolog.Logger
	metrics          *metrics.Metrics
}

// NewWithdrawalUseCase creates a new WithdrawalUseCase.
func NewWithdrawalUseCase(
	userRepo UserRepository,
	contributionRepo ContributionRepository,
	withdrawalRepo WithdrawalRepository,
	validator *domain.WithdrawalValidator,
	calculator *domain.BalanceCalculator,
	persistence WithdrawalPersistencePort,
	locker UserLocker,
	idGen IDGenerator,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *WithdrawalUseCase {
	return &WithdrawalUseCase{
		userRepo:         userRepo,
		contributionRepo: contributionRepo,
		withdrawalRepo:   withdrawalRepo,
		validator:        validator,
		calculator:       calculator,
		persistence:      persistence,
		locker:           locker,
		idGen:            idGen,
		clock:            clock,
		logger:           logger.With().Str("component", "withdrawal_usecase").Logger(),
		metrics:          metrics,
	}
}

// RequestWithdrawalInput represents input for requesting a withdrawal.
type RequestWithdrawalInput struct {
	RequestedAmount *domain.Money
	RequestedAt     *time.Time
	UserID          string
	Type            domain.WithdrawalType
	RequestID       string
	Notes           string
}

// WithdrawalOutput is the result of an approved and persisted withdrawal.
type WithdrawalOutput struct {
	RequestedAt                  time.Time
	RequestID                    string
	UserID                       string
	Type                         domain.WithdrawalType
	Notes                        string
	ApprovedAmount               domain.Money
	AvailableBalanceAfterRequest domain.Money
}

// RequestWithdrawal approves and allocates a withdrawal. Validation and
// allocation run under the same per-user lock.
func (uc *WithdrawalUseCase) RequestWithdrawal(ctx context.Context, input RequestWithdrawalInput) (*WithdrawalOutput, error) {
	output, err := uc.requestWithdrawal(ctx, input)

	if uc.metrics != nil {
		uc.metrics.WithdrawalRequests.WithLabelValues(string(input.Type), outcome(err)).Inc()
	}

	return output, err
}

func (uc *WithdrawalUseCase) requestWithdrawal(ctx context.Context, input RequestWithdrawalInput) (*WithdrawalOutput, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}

	lockStart := time.Now()
	lockCtx, cancel := context.WithTimeout(ctx, DefaultLockTimeout)
	defer cancel()

	unlock, err := uc.locker.Lock(lockCtx, input.UserID)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.LockFailures.Inc()
		}
		return nil, fmt.Errorf("acquire withdrawal lock for user %s: %w", input.UserID, err)
	}
	defer unlock()

	if uc.metrics != nil {
		uc.metrics.LockWaitDuration.Observe(time.Since(lockStart).Seconds())
	}

	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	contributions, err := uc.contributionRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	requestedAt := uc.clock.Now()
	if input.RequestedAt != nil {
		requestedAt = input.RequestedAt.UTC()
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = uc.idGen.Generate()
	}

	request, err := domain.NewWithdrawalRequest(requestID, user.ID, input.Type, input.RequestedAmount, requestedAt, input.Notes)
	if err != nil {
		return nil, err
	}

	approved, err := uc.validator.Validate(request, contributions, requestedAt)
	if err != nil {
		return nil, err
	}

	summary, err := uc.calculator.Summary(contributions, requestedAt)
	if err != nil {
		return nil, err
	}

	availableAfter, err := summary.Available.Subtract(approved)
	if err != nil {
		return nil, err
	}

	persistenceInput := WithdrawalPersistenceInput{
		WithdrawalID:   request.ID(),
		UserID:         request.UserID(),
		Type:           request.Type(),
		ApprovedAmount: approved,
		RequestedAt:    request.RequestedAt(),
		Notes:          request.Notes(),
	}
	if amount, ok := request.RequestedAmount(); ok {
		persistenceInput.RequestedAmount = &amount
	}

	if err := uc.persistence.Process(ctx, persistenceInput); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("user_id", user.ID).
		Str("request_id", request.ID()).
		Str("type", string(request.Type())).
		Str("approved_amount", approved.String()).
		Msg("withdrawal processed")

	return &WithdrawalOutput{
		RequestID:                    request.ID(),
		UserID:                       request.UserID(),
		Type:                         request.Type(),
		ApprovedAmount:               approved,
		AvailableBalanceAfterRequest: availableAfter,
		RequestedAt:                  request.RequestedAt(),
		Notes:                        request.Notes(),
	}, nil
}

// ListWithdrawals returns the user's processed withdrawals, newest first.
func (uc *WithdrawalUseCase) ListWithdrawals(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error) {
	if _, err := uc.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	limit, offset, _ = domain.ValidatePagination(limit, offset)

	return uc.withdrawalRepo.ListByUser(ctx, userID, limit, offset)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeApproved
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidWithdrawal),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrDuplicateWithdrawal):
		return OutcomeRejected
	default:
		return OutcomeFailed
	}
}
