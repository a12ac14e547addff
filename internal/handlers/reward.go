package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/greenpoints/internal/handlers/render"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
)

type rewardResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageRef    string    `json:"image_ref,omitempty"`
	PointCost   int64     `json:"point_cost"`
	CreatedAt   time.Time `json:"created_at"`
}

func newRewardResponse(r models.Reward) rewardResponse {
	return rewardResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		ImageRef:    r.ImageRef,
		PointCost:   r.PointCost,
		CreatedAt:   r.CreatedAt,
	}
}

func handleListRewards(catalogService catalogService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rewards, err := catalogService.List(r.Context())
		if err != nil {
			serviceError(w, l, "Failed to list rewards", err)
			return
		}

		res := make([]rewardResponse, 0, len(rewards))
		for _, reward := range rewards {
			res = append(res, newRewardResponse(reward))
		}
		render.JSON(w, res)
	})
}

func handleGetReward(catalogService catalogService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		reward, err := catalogService.Get(r.Context(), id)
		if err != nil {
			serviceError(w, l, "Failed to get reward", err)
			return
		}

		render.JSON(w, newRewardResponse(reward))
	})
}

func handleAddReward(catalogService catalogService, l logger.Logger) http.Handler {
	type request struct {
		Name        string `json:"name" validate:"required,max=200"`
		Description string `json:"description" validate:"max=2000"`
		ImageRef    string `json:"image_ref" validate:"max=500"`
		PointCost   int64  `json:"point_cost" validate:"required,gt=0"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		reward, err := catalogService.Add(r.Context(), models.Reward{
			Name:        req.Name,
			Description: req.Description,
			ImageRef:    req.ImageRef,
			PointCost:   req.PointCost,
		})
		if err != nil {
			serviceError(w, l, "Failed to add reward", err)
			return
		}

		render.JSONWithStatus(w, newRewardResponse(reward), http.StatusCreated)
	})
}
