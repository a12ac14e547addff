package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/handlers/render"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/service/recycling"
)

type entryResponse struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"account_id"`
	Category        string    `json:"category"`
	WeightKg        float64   `json:"weight_kg"`
	Status          string    `json:"status"`
	EarnedPoints    float64   `json:"earned_points"`
	SpendablePoints float64   `json:"spendable_points"`
	CreatedAt       time.Time `json:"created_at"`
	ModifiedAt      time.Time `json:"modified_at"`
}

func newEntryResponse(e models.RecyclingEntry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		AccountID:       e.AccountID,
		Category:        string(e.Category),
		WeightKg:        float(e.WeightKg),
		Status:          string(e.Status),
		EarnedPoints:    float(e.EarnedPoints),
		SpendablePoints: float(e.SpendablePoints),
		CreatedAt:       e.CreatedAt,
		ModifiedAt:      e.ModifiedAt,
	}
}

type entryWithBalanceResponse struct {
	Entry   entryResponse   `json:"entry"`
	Balance balanceResponse `json:"balance"`
}

func handleSubmitRecycling(recyclingService recyclingService, l logger.Logger) http.Handler {
	type request struct {
		// Optional client generated id, makes retries safe
		ID       uuid.UUID       `json:"id"`
		Category string          `json:"category" validate:"required,waste_category"`
		WeightKg decimal.Decimal `json:"weight_kg"`
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

		res, err := recyclingService.Submit(r.Context(), recycling.Submission{
			EntryID:   req.ID,
			AccountID: p.AccountID,
			Category:  models.WasteCategory(req.Category),
			WeightKg:  req.WeightKg,
		})
		if err != nil {
			serviceError(w, l, "Failed to submit recycling", err)
			return
		}

		render.JSONWithStatus(w, entryWithBalanceResponse{
			Entry:   newEntryResponse(res.Entry),
			Balance: newBalanceResponse(res.Balance),
		}, http.StatusCreated)
	})
}

func handleListRecycling(recyclingService recyclingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		entries, err := recyclingService.ListByAccount(r.Context(), p.AccountID)
		if err != nil {
			serviceError(w, l, "Failed to list recycling entries", err)
			return
		}

		res := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			res = append(res, newEntryResponse(e))
		}
		render.JSON(w, res)
	})
}

func handleUpdateRecyclingWeight(recyclingService recyclingService, l logger.Logger) http.Handler {
	type request struct {
		WeightKg decimal.Decimal `json:"weight_kg"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}
		entryID, ok := pathID(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		res, err := recyclingService.UpdateWeight(r.Context(), entryID, ownerOf(p), req.WeightKg)
		if err != nil {
			serviceError(w, l, "Failed to update recycling weight", err)
			return
		}

		render.JSON(w, entryWithBalanceResponse{
			Entry:   newEntryResponse(res.Entry),
			Balance: newBalanceResponse(res.Balance),
		})
	})
}

func handleSetRecyclingStatus(recyclingService recyclingService, l logger.Logger) http.Handler {
	type request struct {
		Status string `json:"status" validate:"required,entry_status"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entryID, ok := pathID(w, r)
		if !ok {
			return
		}

		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		entry, err := recyclingService.SetStatus(r.Context(), entryID, models.EntryStatus(req.Status))
		if err != nil {
			serviceError(w, l, "Failed to set recycling status", err)
			return
		}

		render.JSON(w, newEntryResponse(entry))
	})
}

func handleDeleteRecycling(recyclingService recyclingService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entryID, ok := pathID(w, r)
		if !ok {
			return
		}

		balance, err := recyclingService.Delete(r.Context(), entryID)
		if err != nil {
			serviceError(w, l, "Failed to delete recycling entry", err)
			return
		}

		render.JSON(w, newBalanceResponse(balance))
	})
}
