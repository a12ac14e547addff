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

type RecyclingRepo struct {
	DB DBTX
}

const entryColumns = `id, account_id, category, weight_kg, status, earned_points, spendable_points, created_at, modified_at`

// Duplicate ids are reported through the empty result, so a retried submission is not an error at db level
const createEntry = `-- name: CreateEntry
INSERT INTO recycling_entries (id, account_id, category, weight_kg, status, earned_points, spendable_points)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
RETURNING ` + entryColumns

func (r *RecyclingRepo) CreateEntry(ctx context.Context, e models.RecyclingEntry) (models.RecyclingEntry, error) {
	if e.Status == "" {
		e.Status = models.EntryPending
	}

	rows, _ := r.DB.Query(ctx, createEntry,
		e.ID, e.AccountID, string(e.Category), e.WeightKg, string(e.Status), e.EarnedPoints, e.SpendablePoints,
	)
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		return entry, apperrors.ErrEntryAlreadyExists
	case errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation:
		return entry, apperrors.ErrAccountNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

const getEntry = `-- name: GetEntry
SELECT ` + entryColumns + `
FROM recycling_entries
WHERE id = $1
`

func (r *RecyclingRepo) GetEntry(ctx context.Context, id uuid.UUID, forUpdate bool) (models.RecyclingEntry, error) {
	query := getEntry
	if forUpdate {
		query += "FOR UPDATE"
	}

	rows, _ := r.DB.Query(ctx, query, id)
	return collectEntry(rows)
}

const updateEntryWeight = `-- name: UpdateEntryWeight
UPDATE recycling_entries
SET weight_kg = $2, earned_points = $3, spendable_points = $4, modified_at = now()
WHERE id = $1
RETURNING ` + entryColumns

func (r *RecyclingRepo) UpdateEntryWeight(ctx context.Context, e models.RecyclingEntry) (models.RecyclingEntry, error) {
	rows, _ := r.DB.Query(ctx, updateEntryWeight, e.ID, e.WeightKg, e.EarnedPoints, e.SpendablePoints)
	return collectEntry(rows)
}

const setEntryStatus = `-- name: SetEntryStatus
UPDATE recycling_entries
SET status = $2, modified_at = now()
WHERE id = $1
RETURNING ` + entryColumns

func (r *RecyclingRepo) SetEntryStatus(ctx context.Context, id uuid.UUID, status models.EntryStatus) (models.RecyclingEntry, error) {
	rows, _ := r.DB.Query(ctx, setEntryStatus, id, string(status))
	return collectEntry(rows)
}

func (r *RecyclingRepo) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM recycling_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEntryNotFound
	}

	return nil
}

func (r *RecyclingRepo) ListEntries(ctx context.Context, opts repository.ListEntriesOpts) ([]models.RecyclingEntry, error) {
	q := psql.Select(entryColumns).
		From("recycling_entries").
		OrderBy("created_at DESC", "id")

	if opts.AccountID != uuid.Nil {
		q = q.Where(sq.Eq{"account_id": opts.AccountID})
	}
	if len(opts.Statuses) > 0 {
		statuses := make([]string, 0, len(opts.Statuses))
		for _, s := range opts.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where(sq.Eq{"status": statuses})
	}
	if opts.Limit > 0 {
		q = q.Limit(uint64(opts.Limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, _ := r.DB.Query(ctx, query, args...)
	entries, err := pgx.CollectRows(rows, rowToEntry)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entries, nil
}

func collectEntry(rows pgx.Rows) (models.RecyclingEntry, error) {
	entry, err := pgx.CollectOneRow(rows, rowToEntry)

	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, pgx.ErrNoRows):
		return entry, apperrors.ErrEntryNotFound
	default:
		return entry, fmt.Errorf("db error: %w", err)
	}
}

func rowToEntry(row pgx.CollectableRow) (models.RecyclingEntry, error) {
	var (
		e        models.RecyclingEntry
		category string
		status   string
	)

	err := row.Scan(&e.ID, &e.AccountID, &category, &e.WeightKg, &status,
		&e.EarnedPoints, &e.SpendablePoints, &e.CreatedAt, &e.ModifiedAt)
	e.Category = models.WasteCategory(category)
	e.Status = models.EntryStatus(status)

	return e, err
}
