package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
	"github.com/iho/pensionledger/internal/usecase/mocks"
)

func TestWithdrawalUseCase_RequestWithdrawal(t *testing.T) {
	ref := day(2024, 6, 1)

	tests := []struct {
		name           string
		input          usecase.RequestWithdrawalInput
		expectError    error
		approved       string
		availableAfter string
	}{
		{
			name:           "total withdrawal takes everything available",
			input:          usecase.RequestWithdrawalInput{UserID: testUserID, Type: domain.WithdrawalTypeTotal, RequestedAt: &ref},
			approved:       "130.00",
			availableAfter: "0.00",
		},
		{
			name:           "partial withdrawal within available",
			input:          usecase.RequestWithdrawalInput{UserID: testUserID, Type: domain.WithdrawalTypePartial, RequestedAmount: money("120"), RequestedAt: &ref},
			approved:       "120.00",
			availableAfter: "10.00",
		},
		{
			name:        "partial withdrawal above available",
			input:       usecase.RequestWithdrawalInput{UserID: testUserID, Type: domain.WithdrawalTypePartial, RequestedAmount: money("500"), RequestedAt: &ref},
			expectError: domain.ErrInsufficientBalance,
		},
		{
			name:        "partial withdrawal without amount",
			input:       usecase.RequestWithdrawalInput{UserID: testUserID, Type: domain.WithdrawalTypePartial, RequestedAt: &ref},
			expectError: domain.ErrInvalidWithdrawal,
		},
		{
			name:        "unknown withdrawal type",
			input:       usecase.RequestWithdrawalInput{UserID: testUserID, Type: "SOME", RequestedAt: &ref},
			expectError: domain.ErrInvalidWithdrawal,
		},
		{
			name:        "missing user id",
			input:       usecase.RequestWithdrawalInput{Type: domain.WithdrawalTypeTotal},
			expectError: domain.ErrInvalidInput,
		},
		{
			name:        "unknown user",
			input:       usecase.RequestWithdrawalInput{UserID: "0e3f4c1e-0000-4b7a-9a43-6f3c0b7d2a11", Type: domain.WithdrawalTypeTotal},
			expectError: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, ref, scenarioA(t)...)

			output, err := fx.withdrawal.RequestWithdrawal(context.Background(), tt.input)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected error %v, got %v", tt.expectError, err)
				}
				if len(fx.withdrawals.All()) != 0 {
					t.Error("rejected request must not persist a withdrawal")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			assertMoney(t, "approved", output.ApprovedAmount, tt.approved)
			assertMoney(t, "available after", output.AvailableBalanceAfterRequest, tt.availableAfter)

			if output.RequestID == "" {
				t.Error("expected a generated request id")
			}
			if len(fx.withdrawals.All()) != 1 {
				t.Errorf("expected one persisted withdrawal, got %d", len(fx.withdrawals.All()))
			}
		})
	}
}

func TestWithdrawalUseCase_ScenarioC(t *testing.T) {
	ref := day(2024, 5, 1)
	fx := newFixture(t, ref, scenarioC(t)...)

	output, err := fx.withdrawal.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID:          testUserID,
		Type:            domain.WithdrawalTypePartial,
		RequestedAmount: money("350"),
		RequestedAt:     &ref,
		RequestID:       "wd-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertMoney(t, "approved", output.ApprovedAmount, "350.00")
	assertMoney(t, "available after", output.AvailableBalanceAfterRequest, "100.00")

	first, _ := fx.contributions.Get("c-first")
	second, _ := fx.contributions.Get("c-second")
	assertMoney(t, "first redeemed", first.RedeemedAmount, "300.00")
	assertMoney(t, "second redeemed", second.RedeemedAmount, "50.00")

	stored := fx.withdrawals.All()
	if len(stored) != 1 {
		t.Fatalf("expected one withdrawal, got %d", len(stored))
	}
	if stored[0].ID != "wd-1" {
		t.Errorf("withdrawal id = %s, want wd-1", stored[0].ID)
	}
	if len(stored[0].Items) != 2 {
		t.Fatalf("expected two withdrawal items, got %d", len(stored[0].Items))
	}
	assertMoney(t, "first item", stored[0].Items[0].Amount, "300.00")
	assertMoney(t, "second item", stored[0].Items[1].Amount, "50.00")

	if got := testutil.ToFloat64(fx.metrics.WithdrawalRequests.WithLabelValues(string(domain.WithdrawalTypePartial), usecase.OutcomeApproved)); got != 1 {
		t.Errorf("approved withdrawal counter = %v, want 1", got)
	}
}

func TestWithdrawalUseCase_ScenarioD_BalanceAfterProjection(t *testing.T) {
	ref := day(2024, 5, 1)
	fx := newFixture(t, ref, scenarioC(t)...)
	fx.publisher.Handler = fx.handler.Handle

	_, err := fx.withdrawal.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID:          testUserID,
		Type:            domain.WithdrawalTypePartial,
		RequestedAmount: money("350"),
		RequestedAt:     &ref,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, err := fx.balance.GetBalance(context.Background(), usecase.GetBalanceInput{UserID: testUserID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if balance.Source != usecase.BalanceSourceProjection {
		t.Errorf("source = %s, want %s", balance.Source, usecase.BalanceSourceProjection)
	}
	assertMoney(t, "total", balance.Total, "450.00")
	assertMoney(t, "available", balance.Available, "100.00")
}

func TestWithdrawalUseCase_ConcurrentRequestsDoNotOverspend(t *testing.T) {
	ref := day(2024, 5, 1)
	fx := newFixture(t, ref, scenarioC(t)...)

	const workers = 2

	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.withdrawal.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
				UserID:          testUserID,
				Type:            domain.WithdrawalTypePartial,
				RequestedAmount: money("400"),
				RequestedAt:     &ref,
			})
		}(i)
	}
	wg.Wait()

	succeeded, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected one success and one rejection, got %d and %d", succeeded, rejected)
	}

	summary, err := fx.calculator.Summary(mustFind(t, fx), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertMoney(t, "available", summary.Available, "50.00")
}

func TestWithdrawalUseCase_LockFailure(t *testing.T) {
	ref := day(2024, 5, 1)
	fx := newFixture(t, ref, scenarioC(t)...)

	lockErr := errors.New("lock busy")
	fx.locker.LockFunc = func(ctx context.Context, userID string) (func(), error) {
		return nil, lockErr
	}

	_, err := fx.withdrawal.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID: testUserID,
		Type:   domain.WithdrawalTypeTotal,
	})
	if !errors.Is(err, lockErr) {
		t.Fatalf("expected lock error, got %v", err)
	}

	if got := testutil.ToFloat64(fx.metrics.LockFailures); got != 1 {
		t.Errorf("lock failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(fx.metrics.WithdrawalRequests.WithLabelValues(string(domain.WithdrawalTypeTotal), usecase.OutcomeFailed)); got != 1 {
		t.Errorf("failed withdrawal counter = %v, want 1", got)
	}
}

func TestWithdrawalUseCase_PersistenceFailureReleasesLock(t *testing.T) {
	ctrl := gomock.NewController(t)

	ref := day(2024, 5, 1)
	fx := newFixture(t, ref, scenarioC(t)...)

	persistErr := errors.New("database unavailable")
	persistence := mocks.NewMockWithdrawalPersistencePort(ctrl)
	persistence.EXPECT().
		Process(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, input usecase.WithdrawalPersistenceInput) error {
			if input.ApprovedAmount.String() != "450.00" {
				t.Errorf("approved amount = %s, want 450.00", input.ApprovedAmount)
			}
			if input.RequestedAmount != nil {
				t.Error("total withdrawal must not carry a requested amount")
			}
			return persistErr
		})

	uc := usecase.NewWithdrawalUseCase(
		fx.users, fx.contributions, fx.withdrawals,
		domain.NewWithdrawalValidator(fx.calculator), fx.calculator,
		persistence, fx.locker, fx.idGen, fx.clock, zerolog.Nop(), nil,
	)

	_, err := uc.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID:      testUserID,
		Type:        domain.WithdrawalTypeTotal,
		RequestedAt: &ref,
	})
	if !errors.Is(err, persistErr) {
		t.Fatalf("expected persistence error, got %v", err)
	}

	if fx.locker.Released != 1 {
		t.Errorf("lock released %d times, want 1", fx.locker.Released)
	}
}

func TestWithdrawalUseCase_ListWithdrawals(t *testing.T) {
	ref := day(2024, 5, 1)
	fx := newFixture(t, ref, scenarioC(t)...)

	for _, amount := range []string{"10", "20"} {
		_, err := fx.withdrawal.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
			UserID:          testUserID,
			Type:            domain.WithdrawalTypePartial,
			RequestedAmount: money(amount),
			RequestedAt:     &ref,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	withdrawals, err := fx.withdrawal.ListWithdrawals(context.Background(), testUserID, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(withdrawals) != 2 {
		t.Fatalf("expected 2 withdrawals, got %d", len(withdrawals))
	}
	assertMoney(t, "newest", withdrawals[0].ApprovedAmount, "20.00")

	if _, err := fx.withdrawal.ListWithdrawals(context.Background(), "missing", 10, 0); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func mustFind(t *testing.T, fx *fixture) []*domain.Contribution {
	t.Helper()

	contributions, err := fx.contributions.FindByUserID(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("failed to load contributions: %v", err)
	}

	return contributions
}
