package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/infrastructure/metrics"
	"github.com/iho/pensionledger/internal/usecase"
	"github.com/iho/pensionledger/internal/usecase/mocks"
)

const testUserID = "5b0f4c1e-8f0e-4b7a-9a43-6f3c0b7d2a11"

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func money(value string) *domain.Money {
	m := domain.MustMoney(value)
	return &m
}

// onceRetrier runs the operation a single time.
type onceRetrier struct{}

func (onceRetrier) Retry(_ context.Context, operation func() error) error {
	return operation()
}

type fixture struct {
	users         *mocks.MockUserRepository
	contributions *mocks.MockContributionRepository
	withdrawals   *mocks.MockWithdrawalRepository
	projections   *mocks.MockBalanceProjectionRepository
	outbox        *mocks.MockOutboxRepository
	txManager     *mocks.MockTransactionManager
	idGen         *mocks.MockIDGenerator
	clock         *mocks.MockClock
	locker        *mocks.MockUserLocker
	publisher     *mocks.MockEventPublisher
	metrics       *metrics.Metrics

	calculator     *domain.BalanceCalculator
	projector      *usecase.BalanceProjector
	handler        *usecase.ProjectionHandler
	engine         *usecase.AllocationEngine
	withdrawal     *usecase.WithdrawalUseCase
	balance        *usecase.BalanceUseCase
	contribution   *usecase.ContributionUseCase
	reconciliation *usecase.ReconciliationUseCase
}

func newFixture(t *testing.T, now time.Time, contributions ...*domain.Contribution) *fixture {
	t.Helper()

	user, err := domain.NewUser(testUserID, "Maria Souza", "12345678901", day(1980, 3, 10), now)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	logger := zerolog.Nop()

	fx := &fixture{
		users:         mocks.NewMockUserRepository(user),
		contributions: mocks.NewMockContributionRepository(contributions...),
		withdrawals:   mocks.NewMockWithdrawalRepository(),
		projections:   mocks.NewMockBalanceProjectionRepository(),
		outbox:        mocks.NewMockOutboxRepository(),
		txManager:     mocks.NewMockTransactionManager(),
		idGen:         mocks.NewMockIDGenerator(),
		clock:         mocks.NewMockClock(now),
		locker:        mocks.NewMockUserLocker(),
		publisher:     mocks.NewMockEventPublisher(),
		metrics:       metrics.New(prometheus.NewRegistry()),
		calculator:    domain.NewBalanceCalculator(),
	}

	fx.projector = usecase.NewBalanceProjector(fx.contributions, fx.projections, fx.calculator)
	fx.handler = usecase.NewProjectionHandler(fx.projector, fx.clock, logger, fx.metrics)
	fx.engine = usecase.NewAllocationEngine(
		fx.txManager, fx.contributions, fx.withdrawals, fx.outbox,
		fx.idGen, onceRetrier{}, fx.publisher, fx.clock, logger, fx.metrics,
	)
	fx.withdrawal = usecase.NewWithdrawalUseCase(
		fx.users, fx.contributions, fx.withdrawals,
		domain.NewWithdrawalValidator(fx.calculator), fx.calculator,
		fx.engine, fx.locker, fx.idGen, fx.clock, logger, fx.metrics,
	)
	fx.balance = usecase.NewBalanceUseCase(
		fx.users, fx.contributions, fx.projections, fx.calculator,
		fx.projector, fx.publisher, fx.clock, logger, fx.metrics,
	)
	fx.contribution = usecase.NewContributionUseCase(
		fx.txManager, fx.users, fx.contributions, fx.outbox,
		fx.idGen, fx.publisher, fx.clock, logger, fx.metrics,
	)
	fx.reconciliation = usecase.NewReconciliationUseCase(
		fx.users, fx.projections, fx.projector, fx.clock, logger, fx.metrics,
	)

	return fx
}

func mustContribution(t *testing.T, c domain.Contribution) *domain.Contribution {
	t.Helper()

	created, err := domain.NewContribution(c)
	if err != nil {
		t.Fatalf("failed to build contribution %s: %v", c.ID, err)
	}

	return created
}

// scenarioC: 300 on 2023-01-01 and 150 on 2023-01-15, both unrestricted.
func scenarioC(t *testing.T) []*domain.Contribution {
	t.Helper()

	return []*domain.Contribution{
		mustContribution(t, domain.Contribution{
			ID:            "c-first",
			UserID:        testUserID,
			Amount:        domain.MustMoney("300"),
			ContributedAt: day(2023, 1, 1),
		}),
		mustContribution(t, domain.Contribution{
			ID:            "c-second",
			UserID:        testUserID,
			Amount:        domain.MustMoney("150"),
			ContributedAt: day(2023, 1, 15),
		}),
	}
}

// scenarioA: 200 partially vested and redeemed, 100 matured, 50 locked.
func scenarioA(t *testing.T) []*domain.Contribution {
	t.Helper()

	carency := func(at time.Time) *domain.CarencyDate {
		c, err := domain.NewCarencyDate(at)
		if err != nil {
			t.Fatalf("failed to build carency date: %v", err)
		}
		return &c
	}

	return []*domain.Contribution{
		mustContribution(t, domain.Contribution{
			ID:             "c-vesting",
			UserID:         testUserID,
			Amount:         domain.MustMoney("200"),
			RedeemedAmount: domain.MustMoney("50"),
			ContributedAt:  day(2023, 1, 1),
			CarencyDate:    carency(day(2024, 12, 1)),
			Vestings: []domain.VestingEntry{
				{ID: "v-1", Amount: domain.MustMoney("80"), ReleaseAt: day(2023, 6, 1)},
				{ID: "v-2", Amount: domain.MustMoney("70"), ReleaseAt: day(2024, 12, 1)},
			},
		}),
		mustContribution(t, domain.Contribution{
			ID:            "c-matured",
			UserID:        testUserID,
			Amount:        domain.MustMoney("100"),
			ContributedAt: day(2023, 2, 1),
			CarencyDate:   carency(day(2023, 12, 1)),
		}),
		mustContribution(t, domain.Contribution{
			ID:            "c-locked",
			UserID:        testUserID,
			Amount:        domain.MustMoney("50"),
			ContributedAt: day(2024, 1, 1),
			CarencyDate:   carency(day(2025, 1, 1)),
		}),
	}
}

func assertMoney(t *testing.T, name string, got domain.Money, want string) {
	t.Helper()

	if got.String() != want {
		t.Errorf("%s = %s, want %s", name, got, want)
	}
}
