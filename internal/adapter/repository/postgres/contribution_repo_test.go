package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

const contributionUser = "5b0f4c1e-8f0e-4b7a-9a43-6f3c0b7d2a11"

var (
	contributionRowColumns = []string{"id", "user_id", "amount", "redeemed_amount", "contributed_at", "carency_date"}
	vestingRowColumns      = []string{"id", "contribution_id", "amount", "release_at"}
)

func utcDay(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func beginMockTx(t *testing.T, mockPool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()

	mockPool.ExpectBegin()
	tx, err := newTxManagerWithPool(mockPool).Begin(context.Background())
	if err != nil {
		t.Fatalf("failed to begin: %v", err)
	}
	return tx
}

func TestContributionRepositorySave(t *testing.T) {
	mockPool := newMockPool(t)
	tx := beginMockTx(t, mockPool)

	contribution, err := domain.NewContribution(domain.Contribution{
		ID:            "c-1",
		UserID:        contributionUser,
		Amount:        domain.MustMoney("200"),
		ContributedAt: utcDay(2023, 1, 1),
		Vestings: []domain.VestingEntry{
			{ID: "v-1", Amount: domain.MustMoney("80"), ReleaseAt: utcDay(2023, 6, 1)},
			{ID: "v-2", Amount: domain.MustMoney("120"), ReleaseAt: utcDay(2024, 12, 1)},
		},
	})
	if err != nil {
		t.Fatalf("failed to build contribution: %v", err)
	}

	mockPool.ExpectExec("INSERT INTO contributions").
		WithArgs("c-1", contributionUser, "200.00", "0.00", utcDay(2023, 1, 1), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO contribution_vestings").
		WithArgs("v-1", "c-1", "80.00", utcDay(2023, 6, 1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec("INSERT INTO contribution_vestings").
		WithArgs("v-2", "c-1", "120.00", utcDay(2024, 12, 1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := newContributionRepository(mockPool).Save(context.Background(), tx, contribution); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestContributionRepositorySaveRejectsForeignTransaction(t *testing.T) {
	mockPool := newMockPool(t)

	err := newContributionRepository(mockPool).Save(context.Background(), fakeTx{}, &domain.Contribution{ID: "c-1"})
	if !errors.Is(err, errForeignTransaction) {
		t.Fatalf("expected errForeignTransaction, got %v", err)
	}
}

func TestContributionRepositoryFindByUserID(t *testing.T) {
	mockPool := newMockPool(t)
	carency := utcDay(2025, 1, 1)

	mockPool.ExpectQuery("FROM contributions WHERE user_id").
		WithArgs(contributionUser).
		WillReturnRows(pgxmock.NewRows(contributionRowColumns).
			AddRow("c-1", contributionUser, "200.00", "50.00", utcDay(2023, 1, 1), nil).
			AddRow("c-2", contributionUser, "50.00", "0.00", utcDay(2024, 1, 1), &carency))
	mockPool.ExpectQuery("FROM contribution_vestings").
		WithArgs([]string{"c-1", "c-2"}).
		WillReturnRows(pgxmock.NewRows(vestingRowColumns).
			AddRow("v-1", "c-1", "80.00", utcDay(2023, 6, 1)).
			AddRow("v-2", "c-1", "70.00", utcDay(2024, 12, 1)))

	contributions, err := newContributionRepository(mockPool).FindByUserID(context.Background(), contributionUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(contributions) != 2 {
		t.Fatalf("expected 2 contributions, got %d", len(contributions))
	}

	first, second := contributions[0], contributions[1]
	if first.ID != "c-1" || len(first.Vestings) != 2 || first.CarencyDate != nil {
		t.Errorf("unexpected first contribution: %+v", first)
	}
	if first.RedeemedAmount.String() != "50.00" {
		t.Errorf("redeemed = %s, want 50.00", first.RedeemedAmount)
	}
	if second.CarencyDate == nil || !second.CarencyDate.Time().Equal(carency) {
		t.Errorf("expected carency date %s, got %+v", carency, second.CarencyDate)
	}
	if got := first.AvailableAmount(utcDay(2024, 6, 1)).String(); got != "30.00" {
		t.Errorf("available = %s, want 30.00", got)
	}

	assertExpectations(t, mockPool)
}

func TestContributionRepositoryFindByUserIDEmpty(t *testing.T) {
	mockPool := newMockPool(t)

	mockPool.ExpectQuery("FROM contributions WHERE user_id").
		WithArgs(contributionUser).
		WillReturnRows(pgxmock.NewRows(contributionRowColumns))

	contributions, err := newContributionRepository(mockPool).FindByUserID(context.Background(), contributionUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contributions) != 0 {
		t.Errorf("expected no contributions, got %d", len(contributions))
	}

	assertExpectations(t, mockPool)
}

func TestContributionRepositoryFindByUserIDForUpdate(t *testing.T) {
	mockPool := newMockPool(t)
	tx := beginMockTx(t, mockPool)

	mockPool.ExpectQuery("FOR UPDATE").
		WithArgs(contributionUser).
		WillReturnRows(pgxmock.NewRows(contributionRowColumns).
			AddRow("c-1", contributionUser, "300.00", "0.00", utcDay(2023, 1, 1), nil))
	mockPool.ExpectQuery("FROM contribution_vestings").
		WithArgs([]string{"c-1"}).
		WillReturnRows(pgxmock.NewRows(vestingRowColumns))

	contributions, err := newContributionRepository(mockPool).FindByUserIDForUpdate(context.Background(), tx, contributionUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contributions) != 1 || contributions[0].Amount.String() != "300.00" {
		t.Fatalf("unexpected contributions: %+v", contributions)
	}

	assertExpectations(t, mockPool)
}

func TestContributionRepositoryFindRejectsCorruptRow(t *testing.T) {
	mockPool := newMockPool(t)

	mockPool.ExpectQuery("FROM contributions WHERE user_id").
		WillReturnRows(pgxmock.NewRows(contributionRowColumns).
			AddRow("c-1", contributionUser, "100.00", "150.00", utcDay(2023, 1, 1), nil))
	mockPool.ExpectQuery("FROM contribution_vestings").
		WillReturnRows(pgxmock.NewRows(vestingRowColumns))

	_, err := newContributionRepository(mockPool).FindByUserID(context.Background(), contributionUser)
	if !errors.Is(err, domain.ErrInvalidContribution) {
		t.Fatalf("expected ErrInvalidContribution, got %v", err)
	}
}

func TestContributionRepositoryUpdateRedeemed(t *testing.T) {
	updatedAt := utcDay(2024, 5, 1)
	contribution := &domain.Contribution{ID: "c-1", RedeemedAmount: domain.MustMoney("300")}

	t.Run("updated", func(t *testing.T) {
		mockPool := newMockPool(t)
		tx := beginMockTx(t, mockPool)

		mockPool.ExpectExec("UPDATE contributions").
			WithArgs("c-1", "300.00", updatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		if err := newContributionRepository(mockPool).UpdateRedeemed(context.Background(), tx, contribution, updatedAt); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertExpectations(t, mockPool)
	})

	t.Run("missing row", func(t *testing.T) {
		mockPool := newMockPool(t)
		tx := beginMockTx(t, mockPool)

		mockPool.ExpectExec("UPDATE contributions").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := newContributionRepository(mockPool).UpdateRedeemed(context.Background(), tx, contribution, updatedAt)
		if !errors.Is(err, domain.ErrContributionNotFound) {
			t.Fatalf("expected ErrContributionNotFound, got %v", err)
		}
	})
}

type fakeTx struct{}

func (fakeTx) Commit(context.Context) error   { return nil }
func (fakeTx) Rollback(context.Context) error { return nil }
