package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
)

type CatalogService struct {
	rewardRepo repository.RewardRepo
	l          logger.Logger
}

func NewService(rewardRepo repository.RewardRepo, l logger.Logger) *CatalogService {
	return &CatalogService{
		rewardRepo: rewardRepo,
		l:          l,
	}
}

func (s *CatalogService) Get(ctx context.Context, id uuid.UUID) (models.Reward, error) {
	return s.rewardRepo.GetReward(ctx, id)
}

func (s *CatalogService) List(ctx context.Context) ([]models.Reward, error) {
	return s.rewardRepo.ListRewards(ctx)
}

// Add puts a reward to the catalog. Editing and removal belong to the catalog admin tool
func (s *CatalogService) Add(ctx context.Context, reward models.Reward) (models.Reward, error) {
	reward.Name = strings.TrimSpace(reward.Name)
	if reward.Name == "" {
		return reward, apperrors.Invalid("reward name is required")
	}
	if reward.PointCost <= 0 {
		return reward, apperrors.Invalid("reward cost must be positive, got %d", reward.PointCost)
	}

	created, err := s.rewardRepo.CreateReward(ctx, reward)
	if err != nil {
		return created, err
	}

	s.l.Info("Reward added", "reward_id", created.ID, "point_cost", created.PointCost)
	return created, nil
}
