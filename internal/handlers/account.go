package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/nkiryanov/greenpoints/internal/handlers/render"
	"github.com/nkiryanov/greenpoints/internal/logger"
)

func handleBalance(accountService accountService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := principal(w, r)
		if !ok {
			return
		}

		balance, err := accountService.GetBalance(r.Context(), p.AccountID)
		if err != nil {
			serviceError(w, l, "Failed to get balance", err)
			return
		}

		render.JSON(w, newBalanceResponse(balance))
	})
}

// Called by the auth collaborator once the user registered
func handleOpenAccount(accountService accountService, l logger.Logger) http.Handler {
	type request struct {
		ID          uuid.UUID `json:"id" validate:"required"`
		DisplayName string    `json:"display_name" validate:"required,max=100"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		account, err := accountService.Open(r.Context(), req.ID, req.DisplayName)
		if err != nil {
			serviceError(w, l, "Failed to open account", err)
			return
		}

		l.Info("Account opened", "account_id", account.ID)
		render.JSONWithStatus(w, newBalanceResponse(account.Balance()), http.StatusCreated)
	})
}

func handleLeaderboard(accountService accountService, l logger.Logger) http.Handler {
	type earner struct {
		AccountID   uuid.UUID `json:"account_id"`
		DisplayName string    `json:"display_name"`
		EarnedTotal float64   `json:"earned_total"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				render.Kind(w, render.InvalidInputType, "Limit must be a positive number", http.StatusUnprocessableEntity)
				return
			}
			limit = n
		}

		accounts, err := accountService.TopEarners(r.Context(), limit)
		if err != nil {
			serviceError(w, l, "Failed to get top earners", err)
			return
		}

		earners := make([]earner, 0, len(accounts))
		for _, a := range accounts {
			earners = append(earners, earner{
				AccountID:   a.ID,
				DisplayName: a.DisplayName,
				EarnedTotal: float(a.EarnedTotal),
			})
		}
		render.JSON(w, earners)
	})
}
