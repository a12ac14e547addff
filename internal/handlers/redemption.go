package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/greenpoints/internal/handlers/render"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
)

type redemptionResponse struct {
	ID            uuid.UUID           `json:"id"`
	AccountID     uuid.UUID           `json:"account_id"`
	DisplayName   string              `json:"display_name"`
	RewardID      *uuid.UUID          `json:"reward_id"`
	RewardName    string              `json:"reward_name"`
	RewardPoints  int64               `json:"reward_points"`
	BalanceBefore float64             `json:"balance_before"`
	BalanceAfter  float64             `json:"balance_after"`
	Shipping      models.ShippingInfo `json:"shipping"`
	Status        string              `json:"status"`
	RedeemedAt    time.Time           `json:"redeemed_at"`
	ModifiedAt    time.Time           `json:"modified_at"`
}

func newRedemptionResponse(r models.Redemption) redemptionResponse {
	return redemptionResponse{
		ID:            r.ID,
		AccountID:     r.AccountID,
		DisplayName:   r.DisplayName,
		RewardID:      r.RewardID,
		RewardName:    r.RewardName,
		RewardPoints:  r.RewardPoints,
		BalanceBefore: float(r.BalanceBefore),
		BalanceAfter:  float(r.BalanceAfter),
		Shipping:      r.Shipping,
		Status:        string(r.Status),
		RedeemedAt:    r.RedeemedAt,
		ModifiedAt:    r.ModifiedAt,
	}
}

type remainingBalanceResponse struct {
	RemainingBalance float64 `json:"remaining_balance"`
}

func handleRedeem(redemptionService redemptionService, l logger.Logger) http.Handler {
	type request struct {
		RewardID uuid.UUID `json:"reward_id" validate:"required"`
		// Checked by the service after the balance, insufficient points win over bad shipping
		Shipping models.ShippingInfo `json:"shipping" validate:"-"`
	}

	type response struct {
		RedemptionID     uuid.UUID `json:"redemption_id"`
		RemainingBalance float64   `json:"remaining_balance"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		receipt, err := redemptionService.Redeem(r.Context(), p.AccountID, req.RewardID, req.Shipping)
		if err != nil {
			serviceError(w, l, "Failed to redeem reward", err)
			return
		}

		render.JSONWithStatus(w, response{
			RedemptionID:     receipt.Redemption.ID,
			RemainingBalance: float(receipt.RemainingBalance),
		}, http.StatusCreated)
	})
}

func handleCancelRedemption(redemptionService redemptionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		remaining, err := redemptionService.Cancel(r.Context(), id, ownerOf(p))
		if err != nil {
			serviceError(w, l, "Failed to cancel redemption", err)
			return
		}

		render.JSON(w, remainingBalanceResponse{RemainingBalance: float(remaining)})
	})
}

func handleListRedemptions(redemptionService redemptionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		redemptions, err := redemptionService.ListByAccount(r.Context(), p.AccountID)
		if err != nil {
			serviceError(w, l, "Failed to list redemptions", err)
			return
		}

		res := make([]redemptionResponse, 0, len(redemptions))
		for _, rd := range redemptions {
			res = append(res, newRedemptionResponse(rd))
		}
		render.JSON(w, res)
	})
}

func handleGetRedemption(redemptionService redemptionService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		rd, err := redemptionService.Get(r.Context(), id, ownerOf(p))
		if err != nil {
			serviceError(w, l, "Failed to get redemption", err)
			return
		}

		render.JSON(w, newRedemptionResponse(rd))
	})
}

// Shipping and status are optional, absent ones stay unchanged
func handleUpdateRedemption(redemptionService redemptionService, l logger.Logger) http.Handler {
	type request struct {
		Shipping *models.ShippingInfo `json:"shipping"`
		Status   *string              `json:"status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		upd := repository.RedemptionUpdate{Shipping: req.Shipping}
		if req.Status != nil {
			status := models.RedemptionStatus(*req.Status)
			upd.Status = &status
		}

		rd, err := redemptionService.Update(r.Context(), id, upd)
		if err != nil {
			serviceError(w, l, "Failed to update redemption", err)
			return
		}

		l.Info("Redemption updated", "redemption_id", rd.ID, "status", rd.Status)
		render.JSON(w, newRedemptionResponse(rd))
	})
}
