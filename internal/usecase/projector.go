package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
)

// BalanceProjector recomputes and stores balance projections.
type BalanceProjector struct {
	contributionRepo ContributionRepository
	projectionRepo   BalanceProjectionRepository
	calculator       *domain.BalanceCalculator
}

// NewBalanceProjector creates a new BalanceProjector.
func NewBalanceProjector(
	contributionRepo ContributionRepository,
	projectionRepo BalanceProjectionRepository,
	calculator *domain.BalanceCalculator,
) *BalanceProjector {
	return &BalanceProjector{
		contributionRepo: contributionRepo,
		projectionRepo:   projectionRepo,
		calculator:       calculator,
	}
}

// Project recomputes the user's balance at ref and upserts it. Running it again
// over unchanged contributions with the same ref stores an identical snapshot.
func (p *BalanceProjector) Project(ctx context.Context, userID string, ref time.Time) (*domain.BalanceProjection, error) {
	projection, err := p.Compute(ctx, userID, ref)
	if err != nil {
		return nil, err
	}

	if err := p.projectionRepo.Upsert(ctx, projection); err != nil {
		return nil, fmt.Errorf("upsert balance projection for user %s: %w", userID, err)
	}

	return projection, nil
}

// Compute builds the projection without storing it.
func (p *BalanceProjector) Compute(ctx context.Context, userID string, ref time.Time) (*domain.BalanceProjection, error) {
	contributions, err := p.contributionRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := p.calculator.Summary(contributions, ref)
	if err != nil {
		return nil, err
	}

	return domain.NewBalanceProjection(userID, summary, ref), nil
}

// ProjectionHandler refreshes projections in response to domain events.
type ProjectionHandler struct {
	projector *BalanceProjector
	clock     Clock
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewProjectionHandler creates a new ProjectionHandler.
func NewProjectionHandler(projector *BalanceProjector, clock Clock, logger zerolog.Logger, metrics *metrics.Metrics) *ProjectionHandler {
	return &ProjectionHandler{
		projector: projector,
		clock:     clock,
		logger:    logger.With().Str("component", "projection_handler").Logger(),
		metrics:   metrics,
	}
}

// EventTypes lists the events that trigger a projection refresh.
func (h *ProjectionHandler) EventTypes() []string {
	return []string{
		domain.EventTypeContributionSaved,
		domain.EventTypeWithdrawalProcessed,
		domain.EventTypeBalanceRecalculationRequested,
	}
}

// Handle projects the event's user at the current instant. Failures are
// logged and counted; reconciliation repairs whatever is left stale.
func (h *ProjectionHandler) Handle(ctx context.Context, event domain.Event) error {
	trigger := triggerFor(event.Type)

	if event.UserID == "" {
		return fmt.Errorf("%w: event %s has no user id", domain.ErrInvalidInput, event.Type)
	}

	if _, err := h.projector.Project(ctx, event.UserID, h.clock.Now()); err != nil {
		h.logger.Error().Err(err).
			Str("user_id", event.UserID).
			Str("event_type", event.Type).
			Msg("balance projection refresh failed")
		if h.metrics != nil {
			h.metrics.ProjectionFailures.WithLabelValues(trigger).Inc()
		}
		return err
	}

	if h.metrics != nil {
		h.metrics.ProjectionUpdates.WithLabelValues(trigger).Inc()
	}

	h.logger.Debug().
		Str("user_id", event.UserID).
		Str("event_type", event.Type).
		Msg("balance projection refreshed")

	return nil
}

func triggerFor(eventType string) string {
	switch eventType {
	case domain.EventTypeContributionSaved:
		return TriggerContributionSaved
	case domain.EventTypeWithdrawalProcessed:
		return TriggerWithdrawalProcessed
	case domain.EventTypeBalanceRecalculationRequested:
		return TriggerRecalculation
	default:
		return TriggerOutbox
	}
}
