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

const contributionColumns = `id, user_id, amount, redeemed_amount, contributed_at, carency_date`

// ContributionRepository implements usecase.ContributionRepository.
// Vestings live in contribution_vestings and are loaded with their parent.
type ContributionRepository struct {
	db DBTX
}

// NewContributionRepository creates a new ContributionRepository.
func NewContributionRepository(pool *pgxpool.Pool) *ContributionRepository {
	return newContributionRepository(pool)
}

func newContributionRepository(db DBTX) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Save inserts a contribution and its vesting schedule.
func (r *ContributionRepository) Save(ctx context.Context, tx usecase.Transaction, contribution *domain.Contribution) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO contributions (`+contributionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		contribution.ID,
		contribution.UserID,
		contribution.Amount.String(),
		contribution.RedeemedAmount.String(),
		contribution.ContributedAt,
		carencyTime(contribution.CarencyDate),
	)
	if err != nil {
		return fmt.Errorf("insert contribution %s: %w", contribution.ID, err)
	}

	for _, v := range contribution.Vestings {
		_, err := pgxTx.Exec(ctx, `
			INSERT INTO contribution_vestings (id, contribution_id, amount, release_at)
			VALUES ($1, $2, $3, $4)
		`, v.ID, contribution.ID, v.Amount.String(), v.ReleaseAt)
		if err != nil {
			return fmt.Errorf("insert vesting %s: %w", v.ID, err)
		}
	}

	return nil
}

// FindByUserID returns the user's contributions ordered by contributed_at.
func (r *ContributionRepository) FindByUserID(ctx context.Context, userID string) ([]*domain.Contribution, error) {
	return r.find(ctx, r.db, userID, false)
}

// FindByUserIDForUpdate is FindByUserID with row locks held until tx ends.
func (r *ContributionRepository) FindByUserIDForUpdate(ctx context.Context, tx usecase.Transaction, userID string) ([]*domain.Contribution, error) {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return nil, err
	}

	return r.find(ctx, pgxTx, userID, true)
}

// UpdateRedeemed persists the contribution's redeemed amount.
func (r *ContributionRepository) UpdateRedeemed(ctx context.Context, tx usecase.Transaction, contribution *domain.Contribution, updatedAt time.Time) error {
	pgxTx, err := pgxTxFrom(tx)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(ctx, `
		UPDATE contributions
		SET redeemed_amount = $2, updated_at = $3
		WHERE id = $1
	`, contribution.ID, contribution.RedeemedAmount.String(), updatedAt)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrContributionNotFound, contribution.ID)
	}

	return nil
}

func (r *ContributionRepository) find(ctx context.Context, db DBTX, userID string, forUpdate bool) ([]*domain.Contribution, error) {
	query := `
		SELECT ` + contributionColumns + `
		FROM contributions
		WHERE user_id = $1
		ORDER BY contributed_at, id
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	var contributionRows []contributionRow
	for rows.Next() {
		var row contributionRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.Amount, &row.RedeemedAmount, &row.ContributedAt, &row.CarencyDate); err != nil {
			rows.Close()
			return nil, err
		}
		contributionRows = append(contributionRows, row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(contributionRows) == 0 {
		return []*domain.Contribution{}, nil
	}

	ids := make([]string, 0, len(contributionRows))
	for _, row := range contributionRows {
		ids = append(ids, row.ID)
	}

	vestings, err := r.findVestings(ctx, db, ids)
	if err != nil {
		return nil, err
	}

	contributions := make([]*domain.Contribution, 0, len(contributionRows))
	for _, row := range contributionRows {
		c, err := row.toDomain(vestings[row.ID])
		if err != nil {
			return nil, fmt.Errorf("map contribution %s: %w", row.ID, err)
		}
		contributions = append(contributions, c)
	}

	return contributions, nil
}

func (r *ContributionRepository) findVestings(ctx context.Context, db DBTX, contributionIDs []string) (map[string][]vestingRow, error) {
	rows, err := db.Query(ctx, `
		SELECT id, contribution_id, amount, release_at
		FROM contribution_vestings
		WHERE contribution_id = ANY($1)
		ORDER BY release_at, id
	`, contributionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byContribution := make(map[string][]vestingRow)
	for rows.Next() {
		var row vestingRow
		if err := rows.Scan(&row.ID, &row.ContributionID, &row.Amount, &row.ReleaseAt); err != nil {
			return nil, err
		}
		byContribution[row.ContributionID] = append(byContribution[row.ContributionID], row)
	}

	return byContribution, rows.Err()
}

type contributionRow struct {
	ContributedAt  time.Time
	CarencyDate    *time.Time
	ID             string
	UserID         string
	Amount         decimal.Decimal
	RedeemedAmount decimal.Decimal
}

type vestingRow struct {
	ReleaseAt      time.Time
	ID             string
	ContributionID string
	Amount         decimal.Decimal
}

func carencyTime(c *domain.CarencyDate) *time.Time {
	if c == nil {
		return nil
	}
	at := c.Time()
	return &at
}

func (row contributionRow) toDomain(vestingRows []vestingRow) (*domain.Contribution, error) {
	amount, err := domain.NewMoney(row.Amount)
	if err != nil {
		return nil, err
	}

	redeemed, err := domain.NewMoney(row.RedeemedAmount)
	if err != nil {
		return nil, err
	}

	var carency *domain.CarencyDate
	if row.CarencyDate != nil {
		c, err := domain.NewCarencyDate(*row.CarencyDate)
		if err != nil {
			return nil, err
		}
		carency = &c
	}

	vestings := make([]domain.VestingEntry, 0, len(vestingRows))
	for _, v := range vestingRows {
		vestingAmount, err := domain.NewMoney(v.Amount)
		if err != nil {
			return nil, err
		}
		vestings = append(vestings, domain.VestingEntry{
			ID:        v.ID,
			Amount:    vestingAmount,
			ReleaseAt: v.ReleaseAt.UTC(),
		})
	}

	return domain.NewContribution(domain.Contribution{
		ID:             row.ID,
		UserID:         row.UserID,
		Amount:         amount,
		RedeemedAmount: redeemed,
		ContributedAt:  row.ContributedAt,
		CarencyDate:    carency,
		Vestings:       vestings,
	})
}
