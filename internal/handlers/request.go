package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/handlers/render"
	"github.com/nkiryanov/greenpoints/internal/handlers/userctx"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
)

// Principal set by the auth middleware
// Writes error response if it is missing, that means the route is not behind auth
func principal(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p, ok := userctx.FromContext(r.Context())
	if !ok {
		render.ServiceError(w, "Internal service error", http.StatusInternalServerError)
	}
	return p, ok
}

// Owner restriction for the caller: admins act on any account
func ownerOf(p models.Principal) uuid.UUID {
	if p.IsAdmin() {
		return uuid.Nil
	}
	return p.AccountID
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		render.Kind(w, render.InvalidInputType, "Invalid id in path", http.StatusUnprocessableEntity)
		return uuid.Nil, false
	}
	return id, true
}

// Render service error and log the ones that are not business outcomes
func serviceError(w http.ResponseWriter, l logger.Logger, msg string, err error) {
	if !apperrors.IsBusiness(err) && !errors.Is(err, apperrors.ErrTransactionFailed) {
		l.Error(msg, "error", err)
	}
	render.Error(w, err)
}

func float(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

type balanceResponse struct {
	AccountID        uuid.UUID `json:"account_id"`
	EarnedTotal      float64   `json:"earned_total"`
	SpendableBalance float64   `json:"spendable_balance"`
}

func newBalanceResponse(b models.Balance) balanceResponse {
	return balanceResponse{
		AccountID:        b.AccountID,
		EarnedTotal:      float(b.EarnedTotal),
		SpendableBalance: float(b.SpendableBalance),
	}
}
