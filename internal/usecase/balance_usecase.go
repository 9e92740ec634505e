package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
)

// BalanceUseCase serves balance reads and recalculation requests.
type BalanceUseCase struct {
	userRepo         UserRepository
	contributionRepo ContributionRepository
	projectionRepo   BalanceProjectionRepository
	calculator       *domain.BalanceCalculator
	projector        *BalanceProjector
	publisher        EventPublisher
	clock            Clock
	logger           zerolog.Logger
	metrics          *metrics.Metrics
}

// NewBalanceUseCase creates a new BalanceUseCase.
func NewBalanceUseCase(
	userRepo UserRepository,
	contributionRepo ContributionRepository,
	projectionRepo BalanceProjectionRepository,
	calculator *domain.BalanceCalculator,
	projector *BalanceProjector,
	publisher EventPublisher,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *BalanceUseCase {
	return &BalanceUseCase{
		userRepo:         userRepo,
		contributionRepo: contributionRepo,
		projectionRepo:   projectionRepo,
		calculator:       calculator,
		projector:        projector,
		publisher:        publisher,
		clock:            clock,
		logger:           logger.With().Str("component", "balance_usecase").Logger(),
		metrics:          metrics,
	}
}

// GetBalanceInput represents input for reading a balance.
type GetBalanceInput struct {
	ReferenceDate *time.Time
	UserID        string
}

// BalanceOutput is a user's balance and where it was read from.
type BalanceOutput struct {
	CalculatedAt time.Time
	UserID       string
	Source       string
	Total        domain.Money
	Available    domain.Money
	Locked       domain.Money
}

// GetBalance returns the user's balance. An explicit reference date is always
// computed live. Otherwise the cached projection is served, and on a miss the
// live result for now is returned and stored if no projection appeared since.
func (uc *BalanceUseCase) GetBalance(ctx context.Context, input GetBalanceInput) (*BalanceOutput, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return nil, fmt.Errorf("%w: userId is required", domain.ErrInvalidInput)
	}

	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	if input.ReferenceDate != nil {
		return uc.live(ctx, user.ID, input.ReferenceDate.UTC())
	}

	projection, err := uc.projectionRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		uc.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to read balance projection, computing live")
	}

	if projection != nil {
		uc.recordRead(BalanceSourceProjection)
		return &BalanceOutput{
			UserID:       user.ID,
			Source:       BalanceSourceProjection,
			Total:        projection.TotalAmount,
			Available:    projection.AvailableAmount,
			Locked:       projection.LockedAmount,
			CalculatedAt: projection.CalculatedAt,
		}, nil
	}

	now := uc.clock.Now()

	output, err := uc.live(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	fresh := &domain.BalanceProjection{
		UserID:          user.ID,
		TotalAmount:     output.Total,
		AvailableAmount: output.Available,
		LockedAmount:    output.Locked,
		CalculatedAt:    now,
	}

	// A read-path snapshot only fills an empty slot; it never replaces a
	// projection stored after contributions were loaded.
	stored, err := uc.projectionRepo.InsertIfAbsent(ctx, fresh)
	switch {
	case err != nil:
		uc.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to store balance projection")
		if uc.metrics != nil {
			uc.metrics.ProjectionFailures.WithLabelValues(TriggerReadPath).Inc()
		}
	case stored && uc.metrics != nil:
		uc.metrics.ProjectionUpdates.WithLabelValues(TriggerReadPath).Inc()
	}

	return output, nil
}

func (uc *BalanceUseCase) live(ctx context.Context, userID string, ref time.Time) (*BalanceOutput, error) {
	contributions, err := uc.contributionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := uc.calculator.Summary(contributions, ref)
	if err != nil {
		return nil, err
	}

	uc.recordRead(BalanceSourceLive)

	return &BalanceOutput{
		UserID:       userID,
		Source:       BalanceSourceLive,
		Total:        summary.Total,
		Available:    summary.Available,
		Locked:       summary.Locked,
		CalculatedAt: ref,
	}, nil
}

func (uc *BalanceUseCase) recordRead(source string) {
	if uc.metrics != nil {
		uc.metrics.BalanceReads.WithLabelValues(source).Inc()
	}
}

// RecalculateInput represents an explicit projection refresh request.
// Async queues the refresh on the event bus instead of running it inline.
type RecalculateInput struct {
	UserID string
	Async  bool
}

// Recalculate refreshes the user's projection. It returns nil when Async is set.
func (uc *BalanceUseCase) Recalculate(ctx context.Context, input RecalculateInput) (*domain.BalanceProjection, error) {
	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()

	if input.Async {
		return nil, uc.publisher.Publish(ctx, domain.Event{
			Type:        domain.EventTypeBalanceRecalculationRequested,
			UserID:      user.ID,
			AggregateID: user.ID,
			OccurredAt:  now,
		})
	}

	projection, err := uc.projector.Project(ctx, user.ID, now)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.ProjectionFailures.WithLabelValues(TriggerRecalculation).Inc()
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ProjectionUpdates.WithLabelValues(TriggerRecalculation).Inc()
	}

	return projection, nil
}
