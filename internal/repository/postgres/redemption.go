package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
)

type RedemptionRepo struct {
	DB DBTX
}

const redemptionColumns = `id, account_id, display_name, reward_id, reward_name, reward_points,
balance_before, balance_after,
shipping_name, shipping_address, shipping_phone, shipping_postal_code, shipping_city, shipping_state,
status, redeemed_at, modified_at`

const createRedemption = `-- name: CreateRedemption
INSERT INTO redemptions (
    id, account_id, display_name, reward_id, reward_name, reward_points,
    balance_before, balance_after,
    shipping_name, shipping_address, shipping_phone, shipping_postal_code, shipping_city, shipping_state,
    status
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + redemptionColumns

func (r *RedemptionRepo) CreateRedemption(ctx context.Context, rd models.Redemption) (models.Redemption, error) {
	if rd.ID == uuid.Nil {
		rd.ID = uuid.New()
	}
	if rd.Status == "" {
		rd.Status = models.RedemptionPending
	}

	rows, _ := r.DB.Query(ctx, createRedemption,
		rd.ID, rd.AccountID, rd.DisplayName, rd.RewardID, rd.RewardName, rd.RewardPoints,
		rd.BalanceBefore, rd.BalanceAfter,
		rd.Shipping.Name, rd.Shipping.Address, rd.Shipping.Phone, rd.Shipping.PostalCode, rd.Shipping.City, rd.Shipping.State,
		string(rd.Status),
	)
	created, err := pgx.CollectOneRow(rows, rowToRedemption)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return created, nil
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation:
		return created, apperrors.NewInsufficientBalance(
			rd.BalanceBefore.Sub(rd.BalanceAfter), rd.BalanceBefore,
		)
	default:
		return created, fmt.Errorf("db error: %w", err)
	}
}

const getRedemption = `-- name: GetRedemption
SELECT ` + redemptionColumns + `
FROM redemptions
WHERE id = $1
`

func (r *RedemptionRepo) GetRedemption(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Redemption, error) {
	query := getRedemption
	if forUpdate {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, id)
	return collectRedemption(rows)
}

func (r *RedemptionRepo) UpdateRedemption(ctx context.Context, id uuid.UUID, upd repository.RedemptionUpdate) (models.Redemption, error) {
	if upd.Shipping == nil && upd.Status == nil {
		return r.GetRedemption(ctx, id, false)
	}

	q := psql.Update("redemptions").
		Set("modified_at", sq.Expr("now()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + redemptionColumns)

	if s := upd.Shipping; s != nil {
		q = q.SetMap(map[string]any{
			"shipping_name":        s.Name,
			"shipping_address":     s.Address,
			"shipping_phone":       s.Phone,
			"shipping_postal_code": s.PostalCode,
			"shipping_city":        s.City,
			"shipping_state":       s.State,
		})
	}
	if upd.Status != nil {
		q = q.Set("status", string(*upd.Status))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return models.Redemption{}, fmt.Errorf("build query: %w", err)
	}

	rows, _ := r.DB.Query(ctx, query, args...)
	return collectRedemption(rows)
}

func (r *RedemptionRepo) DeleteRedemption(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM redemptions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrRedemptionNotFound
	}

	return nil
}

// Zero account id lists every redemption
func (r *RedemptionRepo) ListRedemptions(ctx context.Context, accountID uuid.UUID) ([]models.Redemption, error) {
	q := psql.Select(redemptionColumns).
		From("redemptions").
		OrderBy("redeemed_at DESC", "id")
	if accountID != uuid.Nil {
		q = q.Where(sq.Eq{"account_id": accountID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, _ := r.DB.Query(ctx, query, args...)
	redemptions, err := pgx.CollectRows(rows, rowToRedemption)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return redemptions, nil
}

func collectRedemption(rows pgx.Rows) (models.Redemption, error) {
	rd, err := pgx.CollectOneRow(rows, rowToRedemption)

	switch {
	case err == nil:
		return rd, nil
	case errors.Is(err, pgx.ErrNoRows):
		return rd, apperrors.ErrRedemptionNotFound
	default:
		return rd, fmt.Errorf("db error: %w", err)
	}
}

func rowToRedemption(row pgx.CollectableRow) (models.Redemption, error) {
	var (
		rd     models.Redemption
		status string
	)

	err := row.Scan(
		&rd.ID, &rd.AccountID, &rd.DisplayName, &rd.RewardID, &rd.RewardName, &rd.RewardPoints,
		&rd.BalanceBefore, &rd.BalanceAfter,
		&rd.Shipping.Name, &rd.Shipping.Address, &rd.Shipping.Phone,
		&rd.Shipping.PostalCode, &rd.Shipping.City, &rd.Shipping.State,
		&status, &rd.RedeemedAt, &rd.ModifiedAt,
	)
	rd.Status = models.RedemptionStatus(status)

	return rd, err
}
