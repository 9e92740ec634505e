package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/pensionledger/internal/domain"
	"github.com/iho/pensionledger/internal/usecase"
)

const withdrawalColumns = `id, user_id, type, status, requested_amount, approved_amount, requested_at, processed_at, notes`

// WithdrawalRepository implements usecase.WithdrawalRepository.
type WithdrawalRepository struct {
	db DBTX
}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return newWithdrawalRepository(pool)
}

func newWithdrawalRepository(db DBTX) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create inserts the withdrawal and its items inside tx.
func (r *WithdrawalRepository) Create(ctx context.Context, tx usecase.Transaction, withdrawal *domain.Withdrawal) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO withdrawals (`+withdrawalColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		withdrawal.ID,
		withdrawal.UserID,
		string(withdrawal.Type),
		string(withdrawal.Status),
		withdrawal.RequestedAmount.String(),
		withdrawal.ApprovedAmount.String(),
		withdrawal.RequestedAt,
		withdrawal.ProcessedAt,
		withdrawal.Notes,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateWithdrawal, withdrawal.ID)
	}
	if err != nil {
		return err
	}

	for _, item := range withdrawal.Items {
		_, err := pgxTx.Exec(ctx, `
			INSERT INTO withdrawal_items (id, withdrawal_id, contribution_id, amount)
			VALUES ($1, $2, $3, $4)
		`, item.ID, item.WithdrawalID, item.ContributionID, item.Amount.String())
		if err != nil {
			return fmt.Errorf("insert withdrawal item %s: %w", item.ID, err)
		}
	}

	return nil
}

// ListByUser returns the user's withdrawals with their items, newest first.
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Withdrawal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+withdrawalColumns+`
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY processed_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	var withdrawals []*domain.Withdrawal
	for rows.Next() {
		var row withdrawalRow
		if err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.Type,
			&row.Status,
			&row.RequestedAmount,
			&row.ApprovedAmount,
			&row.RequestedAt,
			&row.ProcessedAt,
			&row.Notes,
		); err != nil {
			rows.Close()
			return nil, err
		}

		w, err := row.toDomain()
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("map withdrawal %s: %w", row.ID, err)
		}
		withdrawals = append(withdrawals, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(withdrawals) == 0 {
		return withdrawals, nil
	}

	if err := r.attachItems(ctx, withdrawals); err != nil {
		return nil, err
	}

	return withdrawals, nil
}

func (r *WithdrawalRepository) attachItems(ctx context.Context, withdrawals []*domain.Withdrawal) error {
	ids := make([]string, 0, len(withdrawals))
	byID := make(map[string]*domain.Withdrawal, len(withdrawals))
	for _, w := range withdrawals {
		ids = append(ids, w.ID)
		byID[w.ID] = w
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, withdrawal_id, contribution_id, amount
		FROM withdrawal_items
		WHERE withdrawal_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item   domain.WithdrawalItem
			amount decimal.Decimal
		)
		if err := rows.Scan(&item.ID, &item.WithdrawalID, &item.ContributionID, &amount); err != nil {
			return err
		}

		item.Amount, err = domain.NewMoney(amount)
		if err != nil {
			return fmt.Errorf("map withdrawal item %s: %w", item.ID, err)
		}

		if w, ok := byID[item.WithdrawalID]; ok {
			w.Items = append(w.Items, item)
		}
	}

	return rows.Err()
}

type withdrawalRow struct {
	RequestedAt     time.Time
	ProcessedAt     time.Time
	ID              string
	UserID          string
	Type            string
	Status          string
	Notes           string
	RequestedAmount decimal.Decimal
	ApprovedAmount  decimal.Decimal
}

func (row withdrawalRow) toDomain() (*domain.Withdrawal, error) {
	requested, err := domain.NewMoney(row.RequestedAmount)
	if err != nil {
		return nil, err
	}

	approved, err := domain.NewMoney(row.ApprovedAmount)
	if err != nil {
		return nil, err
	}

	return &domain.Withdrawal{
		ID:              row.ID,
		UserID:          row.UserID,
		Type:            domain.WithdrawalType(row.Type),
		Status:          domain.WithdrawalStatus(row.Status),
		RequestedAmount: requested,
		ApprovedAmount:  approved,
		RequestedAt:     row.RequestedAt.UTC(),
		ProcessedAt:     row.ProcessedAt.UTC(),
		Notes:           row.Notes,
	}, nil
}
