package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/models"
)

type RewardRepo struct {
	DB DBTX
}

const rewardColumns = `id, name, description, image_ref, point_cost, created_at`

const createReward = `-- name: CreateReward
INSERT INTO rewards (id, name, description, image_ref, point_cost)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + rewardColumns

func (r *RewardRepo) CreateReward(ctx context.Context, reward models.Reward) (models.Reward, error) {
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}

	rows, _ := r.DB.Query(ctx, createReward, reward.ID, reward.Name, reward.Description, reward.ImageRef, reward.PointCost)
	created, err := pgx.CollectOneRow(rows, rowToReward)
	if err != nil {
		return created, fmt.Errorf("db error: %w", err)
	}

	return created, nil
}

const getReward = `-- name: GetReward
SELECT ` + rewardColumns + `
FROM rewards
WHERE id = $1`

func (r *RewardRepo) GetReward(ctx context.Context, id uuid.UUID) (models.Reward, error) {
	rows, _ := r.DB.Query(ctx, getReward, id)
	reward, err := pgx.CollectOneRow(rows, rowToReward)

	switch {
	case err == nil:
		return reward, nil
	case errors.Is(err, pgx.ErrNoRows):
		return reward, apperrors.ErrRewardNotFound
	default:
		return reward, fmt.Errorf("db error: %w", err)
	}
}

const listRewards = `-- name: ListRewards
SELECT ` + rewardColumns + `
FROM rewards
ORDER BY point_cost ASC, name ASC`

func (r *RewardRepo) ListRewards(ctx context.Context) ([]models.Reward, error) {
	rows, _ := r.DB.Query(ctx, listRewards)
	rewards, err := pgx.CollectRows(rows, rowToReward)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rewards, nil
}

func rowToReward(row pgx.CollectableRow) (models.Reward, error) {
	var rw models.Reward
	err := row.Scan(&rw.ID, &rw.Name, &rw.Description, &rw.ImageRef, &rw.PointCost, &rw.CreatedAt)
	return rw, err
}
