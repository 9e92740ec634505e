package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/pensionledger/internal/domain"
)

// BalanceProjectionRepository implements usecase.BalanceProjectionRepository
// on the user_balances table.
type BalanceProjectionRepository struct {
	db DBTX
}

// NewBalanceProjectionRepository creates a new BalanceProjectionRepository.
func NewBalanceProjectionRepository(pool *pgxpool.Pool) *BalanceProjectionRepository {
	return newBalanceProjectionRepository(pool)
}

func newBalanceProjectionRepository(db DBTX) *BalanceProjectionRepository {
	return &BalanceProjectionRepository{db: db}
}

// FindByUserID returns nil, nil when the user has no projection.
func (r *BalanceProjectionRepository) FindByUserID(ctx context.Context, userID string) (*domain.BalanceProjection, error) {
	var row projectionRow
	err := r.db.QueryRow(ctx, `
		SELECT user_id, total_amount, available_amount, locked_amount, calculated_at
		FROM user_balances
		WHERE user_id = $1
	`, userID).Scan(&row.UserID, &row.Total, &row.Available, &row.Locked, &row.CalculatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}

// Upsert stores the projection. An existing row calculated after it is kept,
// so a slow writer cannot roll the snapshot back.
func (r *BalanceProjectionRepository) Upsert(ctx context.Context, projection *domain.BalanceProjection) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_balances (user_id, total_amount, available_amount, locked_amount, calculated_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE SET
			total_amount = EXCLUDED.total_amount,
			available_amount = EXCLUDED.available_amount,
			locked_amount = EXCLUDED.locked_amount,
			calculated_at = EXCLUDED.calculated_at,
			updated_at = now()
		WHERE user_balances.calculated_at <= EXCLUDED.calculated_at
	`, projectionArgs(projection)...)

	return err
}

// InsertIfAbsent stores the projection only when the user has no row yet.
func (r *BalanceProjectionRepository) InsertIfAbsent(ctx context.Context, projection *domain.BalanceProjection) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO user_balances (user_id, total_amount, available_amount, locked_amount, calculated_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO NOTHING
	`, projectionArgs(projection)...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func projectionArgs(projection *domain.BalanceProjection) []any {
	return []any{
		projection.UserID,
		projection.TotalAmount.String(),
		projection.AvailableAmount.String(),
		projection.LockedAmount.String(),
		projection.CalculatedAt,
	}
}

type projectionRow struct {
	CalculatedAt time.Time
	UserID       string
	Total        decimal.Decimal
	Available    decimal.Decimal
	Locked       decimal.Decimal
}

func (row projectionRow) toDomain() (*domain.BalanceProjection, error) {
	total, err := domain.NewMoney(row.Total)
	if err != nil {
		return nil, err
	}

	available, err := domain.NewMoney(row.Available)
	if err != nil {
		return nil, err
	}

	locked, err := domain.NewMoney(row.Locked)
	if err != nil {
		return nil, err
	}

	return &domain.BalanceProjection{
		UserID:          row.UserID,
		TotalAmount:     total,
		AvailableAmount: available,
		LockedAmount:    locked,
		CalculatedAt:    row.CalculatedAt.UTC(),
	}, nil
}
