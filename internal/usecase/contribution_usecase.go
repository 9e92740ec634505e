package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
)

// ContributionUseCase records contributions and reports their availability.
type ContributionUseCase struct {
	txManager        TransactionManager
	userRepo         UserRepository
	contributionRepo ContributionRepository
	outboxRepo       OutboxRepository
	idGen            IDGenerator
	publisher        EventPublisher
	clock            Clock
	logger           zerolog.Logger
	metrics          *metrics.Metrics
}

// NewContributionUseCase creates a new ContributionUseCase.
func NewContributionUseCase(
	txManager TransactionManager,
	userRepo UserRepository,
	contributionRepo ContributionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	publisher EventPublisher,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *ContributionUseCase {
	return &ContributionUseCase{
		txManager:        txManager,
		userRepo:         userRepo,
		contributionRepo: contributionRepo,
		outboxRepo:       outboxRepo,
		idGen:            idGen,
		publisher:        publisher,
		clock:            clock,
		logger:           logger.With().Str("component", "contribution_usecase").Logger(),
		metrics:          metrics,
	}
}

// VestingInput is one scheduled release of a contribution.
type VestingInput struct {
	ReleaseAt time.Time
	Amount    domain.Money
}

// RecordContributionInput represents input for recording a contribution.
type RecordContributionInput struct {
	ContributedAt *time.Time
	CarencyDate   *time.Time
	UserID        string
	Vestings      []VestingInput
	Amount        domain.Money
}

// ContributionView is a contribution with its availability at a reference date.
type ContributionView struct {
	Contribution *domain.Contribution
	Availability domain.Availability
}

// RecordContribution stores a new contribution and emits contribution.saved.
func (uc *ContributionUseCase) RecordContribution(ctx context.Context, input RecordContributionInput) (*domain.Contribution, error) {
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", domain.ErrInvalidContribution)
	}

	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()

	contributedAt := now
	if input.ContributedAt != nil {
		contributedAt = input.ContributedAt.UTC()
	}

	var carency *domain.CarencyDate
	if input.CarencyDate != nil {
		c, err := domain.NewCarencyDate(*input.CarencyDate)
		if err != nil {
			return nil, err
		}
		carency = &c
	}

	vestings := make([]domain.VestingEntry, 0, len(input.Vestings))
	for _, v := range input.Vestings {
		vestings = append(vestings, domain.VestingEntry{
			ID:        uc.idGen.Generate(),
			Amount:    v.Amount,
			ReleaseAt: v.ReleaseAt.UTC(),
		})
	}

	contribution, err := domain.NewContribution(domain.Contribution{
		ID:             uc.idGen.Generate(),
		UserID:         user.ID,
		Amount:         input.Amount,
		RedeemedAmount: domain.ZeroMoney(),
		ContributedAt:  contributedAt,
		CarencyDate:    carency,
		Vestings:       vestings,
	})
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := uc.contributionRepo.Save(txCtx, tx, contribution); err != nil {
		return nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   contribution.ID,
		AggregateType: domain.AggregateTypeContribution,
		EventType:     domain.EventTypeContributionSaved,
		Payload: map[string]any{
			"contribution_id": contribution.ID,
			"user_id":         contribution.UserID,
			"amount":          contribution.Amount.String(),
			"contributed_at":  contribution.ContributedAt.Format(time.RFC3339Nano),
		},
		CreatedAt: now,
		Published: false,
	}
	if err := uc.outboxRepo.Create(txCtx, tx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ContributionsRecorded.Inc()
	}

	if err := uc.publisher.Publish(ctx, domain.Event{
		Type:        domain.EventTypeContributionSaved,
		UserID:      contribution.UserID,
		AggregateID: contribution.ID,
		OccurredAt:  now,
	}); err != nil {
		uc.logger.Warn().Err(err).
			Str("user_id", contribution.UserID).
			Str("contribution_id", contribution.ID).
			Msg("failed to dispatch contribution saved event")
	}

	return contribution, nil
}

// ListContributions returns the user's contributions, oldest first, with
// availability at ref or now when ref is nil.
func (uc *ContributionUseCase) ListContributions(ctx context.Context, userID string, ref *time.Time) ([]ContributionView, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	at := uc.clock.Now()
	if ref != nil {
		at = ref.UTC()
	}

	contributions, err := uc.contributionRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	views := make([]ContributionView, 0, len(contributions))
	for _, c := range contributions {
		views = append(views, ContributionView{Contribution: c, Availability: c.Availability(at)})
	}

	return views, nil
}
