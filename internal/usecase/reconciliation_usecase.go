package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase compares stored projections with balances recomputed
// from contributions and optionally repairs drift.
type ReconciliationUseCase struct {
	userRepo       UserRepository
	projectionRepo BalanceProjectionRepository
	projector      *BalanceProjector
	clock          Clock
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	userRepo UserRepository,
	projectionRepo BalanceProjectionRepository,
	projector *BalanceProjector,
	clock Clock,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		userRepo:       userRepo,
		projectionRepo: projectionRepo,
		projector:      projector,
		clock:          clock,
		logger:         logger.With().Str("component", "reconciliation").Logger(),
		metrics:        metrics,
	}
}

// ReconciliationResult represents the result of a reconciliation check.
// Recorded is nil when the user has no projection.
type ReconciliationResult struct {
	CheckedAt    time.Time
	Recorded     *domain.BalanceProjection
	Calculated   *domain.BalanceProjection
	UserID       string
	IsReconciled bool
	Repaired     bool
}

// ReconcileUser recomputes the user's balance at the projection's own
// CalculatedAt and compares the two. With repair set, a missing or drifted
// projection is refreshed for now.
func (uc *ReconciliationUseCase) ReconcileUser(ctx context.Context, userID string, repair bool) (*ReconciliationResult, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()

	recorded, err := uc.projectionRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	ref := now
	if recorded != nil {
		ref = recorded.CalculatedAt
	}

	calculated, err := uc.projector.Compute(ctx, user.ID, ref)
	if err != nil {
		return nil, err
	}

	result := &ReconciliationResult{
		UserID:       user.ID,
		Recorded:     recorded,
		Calculated:   calculated,
		IsReconciled: recorded != nil && recorded.SameBalance(calculated),
		CheckedAt:    now,
	}

	if result.IsReconciled {
		return result, nil
	}

	if uc.metrics != nil {
		uc.metrics.ProjectionDrift.Inc()
	}

	uc.logger.Warn().
		Str("user_id", user.ID).
		Bool("missing", recorded == nil).
		Str("calculated_available", calculated.AvailableAmount.String()).
		Msg("balance projection out of sync")

	if !repair {
		return result, nil
	}

	if _, err := uc.projector.Project(ctx, user.ID, now); err != nil {
		if uc.metrics != nil {
			uc.metrics.ProjectionFailures.WithLabelValues(TriggerReconciliation).Inc()
		}
		return nil, fmt.Errorf("repair projection for user %s: %w", user.ID, err)
	}

	if uc.metrics != nil {
		uc.metrics.ProjectionUpdates.WithLabelValues(TriggerReconciliation).Inc()
	}
	result.Repaired = true

	return result, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	CheckedAt          time.Time
	Discrepancies      []*ReconciliationResult
	TotalUsers         int
	ReconciledUsers    int
	MissingProjections int
	RepairedUsers      int
}

// GenerateReconciliationReport reconciles every user, page by page.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context, repair bool) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     uc.clock.Now(),
	}

	for offset := 0; ; offset += ReconciliationPageSize {
		users, err := uc.userRepo.List(ctx, ReconciliationPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, user := range users {
			result, err := uc.ReconcileUser(ctx, user.ID, repair)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile user %s: %w", user.ID, err)
			}

			report.TotalUsers++
			switch {
			case result.IsReconciled:
				report.ReconciledUsers++
			default:
				if result.Recorded == nil {
					report.MissingProjections++
				}
				if result.Repaired {
					report.RepairedUsers++
				}
				report.Discrepancies = append(report.Discrepancies, result)
			}
		}

		if len(users) < ReconciliationPageSize {
			break
		}
	}

	return report, nil
}
