package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/models"
)

type AccountRepo struct {
	DB DBTX
}

const accountColumns = `id, display_name, created_at, earned_total, spendable_balance`

const createAccount = `-- name: CreateAccount
INSERT INTO accounts (id, display_name)
VALUES ($1, $2)
RETURNING ` + accountColumns

func (r *AccountRepo) CreateAccount(ctx context.Context, id uuid.UUID, displayName string) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, createAccount, id, displayName)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return account, apperrors.ErrAccountAlreadyExists
		}

		return account, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

const getAccount = `-- name: GetAccount
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

func (r *AccountRepo) GetAccount(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Account, error) {
	query := getAccount
	if forUpdate {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, id)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		return account, apperrors.ErrAccountNotFound
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

// The guard makes the update a compare-and-set on the balance:
// concurrent credits serialize on the row and none may push it below zero
const creditAccount = `-- name: CreditAccount
UPDATE accounts
SET earned_total = earned_total + $2,
    spendable_balance = spendable_balance + $3
WHERE id = $1 AND spendable_balance + $3 >= 0
RETURNING ` + accountColumns

func (r *AccountRepo) Credit(ctx context.Context, id uuid.UUID, earnedDelta, spendableDelta decimal.Decimal) (models.Account, error) {
	rows, _ := r.DB.Query(ctx, creditAccount, id, earnedDelta, spendableDelta)
	account, err := pgx.CollectOneRow(rows, rowToAccount)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return account, nil
	case errors.Is(err, pgx.ErrNoRows):
		// Either no account or the guard rejected the update; tell which one
		current, getErr := r.GetAccount(ctx, id, false)
		if getErr != nil {
			return account, getErr
		}
		return current, apperrors.NewInsufficientBalance(spendableDelta.Neg(), current.SpendableBalance)
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.CheckViolation:
		return account, fmt.Errorf("balance constraint: %w", apperrors.ErrBalanceInsufficient)
	default:
		return account, fmt.Errorf("db error: %w", err)
	}
}

const listTopEarners = `-- name: ListTopEarners
SELECT ` + accountColumns + `
FROM accounts
ORDER BY earned_total DESC, created_at ASC
LIMIT $1
`

func (r *AccountRepo) ListTopEarners(ctx context.Context, limit int) ([]models.Account, error) {
	rows, _ := r.DB.Query(ctx, listTopEarners, limit)
	accounts, err := pgx.CollectRows(rows, rowToAccount)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return accounts, nil
}

func rowToAccount(row pgx.CollectableRow) (models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.DisplayName, &a.CreatedAt, &a.EarnedTotal, &a.SpendableBalance)
	return a, err
}
