package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/pensionledger/internal/domain"
)

var projectionRowColumns = []string{"user_id", "total_amount", "available_amount", "locked_amount", "calculated_at"}

func TestBalanceProjectionRepositoryFindByUserID(t *testing.T) {
	mockPool := newMockPool(t)
	calculatedAt := utcDay(2024, 5, 1)

	mockPool.ExpectQuery("FROM user_balances").
		WithArgs(contributionUser).
		WillReturnRows(pgxmock.NewRows(projectionRowColumns).
			AddRow(contributionUser, "450.00", "100.00", "0.00", calculatedAt))

	projection, err := newBalanceProjectionRepository(mockPool).FindByUserID(context.Background(), contributionUser)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if projection.TotalAmount.String() != "450.00" || projection.AvailableAmount.String() != "100.00" {
		t.Errorf("unexpected projection: %+v", projection)
	}
	if !projection.CalculatedAt.Equal(calculatedAt) {
		t.Errorf("calculated at = %s, want %s", projection.CalculatedAt, calculatedAt)
	}

	assertExpectations(t, mockPool)
}

func TestBalanceProjectionRepositoryFindByUserIDMiss(t *testing.T) {
	mockPool := newMockPool(t)

	mockPool.ExpectQuery("FROM user_balances").
		WithArgs(contributionUser).
		WillReturnRows(pgxmock.NewRows(projectionRowColumns))

	projection, err := newBalanceProjectionRepository(mockPool).FindByUserID(context.Background(), contributionUser)
	if err != nil || projection != nil {
		t.Fatalf("expected nil, nil on miss, got %+v, %v", projection, err)
	}
}

func TestBalanceProjectionRepositoryFindByUserIDError(t *testing.T) {
	mockPool := newMockPool(t)
	queryErr := errors.New("connection reset")

	mockPool.ExpectQuery("FROM user_balances").WillReturnError(queryErr)

	if _, err := newBalanceProjectionRepository(mockPool).FindByUserID(context.Background(), contributionUser); !errors.Is(err, queryErr) {
		t.Fatalf("expected query error, got %v", err)
	}
}

func TestBalanceProjectionRepositoryUpsert(t *testing.T) {
	mockPool := newMockPool(t)
	projection := &domain.BalanceProjection{
		UserID:          contributionUser,
		TotalAmount:     domain.MustMoney("450"),
		AvailableAmount: domain.MustMoney("100"),
		LockedAmount:    domain.ZeroMoney(),
		CalculatedAt:    utcDay(2024, 5, 1),
	}

	mockPool.ExpectExec("ON CONFLICT \\(user_id\\) DO UPDATE .* WHERE user_balances.calculated_at <= EXCLUDED.calculated_at").
		WithArgs(contributionUser, "450.00", "100.00", "0.00", utcDay(2024, 5, 1)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := newBalanceProjectionRepository(mockPool).Upsert(context.Background(), projection); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, mockPool)
}

func TestBalanceProjectionRepositoryInsertIfAbsent(t *testing.T) {
	projection := &domain.BalanceProjection{
		UserID:          contributionUser,
		TotalAmount:     domain.MustMoney("450"),
		AvailableAmount: domain.MustMoney("450"),
		LockedAmount:    domain.ZeroMoney(),
		CalculatedAt:    utcDay(2024, 5, 1),
	}

	tests := []struct {
		name      string
		affected  int64
		wantSaved bool
	}{
		{name: "no row yet", affected: 1, wantSaved: true},
		{name: "row already present", affected: 0, wantSaved: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool := newMockPool(t)
			mockPool.ExpectExec("ON CONFLICT \\(user_id\\) DO NOTHING").
				WithArgs(contributionUser, "450.00", "450.00", "0.00", utcDay(2024, 5, 1)).
				WillReturnResult(pgxmock.NewResult("INSERT", tt.affected))

			saved, err := newBalanceProjectionRepository(mockPool).InsertIfAbsent(context.Background(), projection)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if saved != tt.wantSaved {
				t.Fatalf("saved = %v, want %v", saved, tt.wantSaved)
			}

			assertExpectations(t, mockPool)
		})
	}
}
