package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/handlers/middleware"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
	"github.com/nkiryanov/greenpoints/internal/service/recycling"
	"github.com/nkiryanov/greenpoints/internal/service/redemption"
)

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

type Services struct {
	Auth       authService
	Account    accountService
	Recycling  recyclingService
	Catalog    catalogService
	Redemption redemptionService

	// Prometheus exposition, optional
	Metrics http.Handler
}

// Routes are registered on one mux so middlewares see the matched pattern
func NewRouter(
	s Services,
	l logger.Logger,
	mds ...func(next http.Handler) http.Handler,
) http.Handler {
	withAuth := middleware.AuthMiddleware(s.Auth)
	withAdmin := func(h http.Handler) http.Handler {
		return withAuth(middleware.AdminOnly(h))
	}

	mux := http.NewServeMux()

	mux.Handle("GET /api/account/balance", withAuth(handleBalance(s.Account, l)))
	mux.Handle("POST /api/account/recycling", withAuth(handleSubmitRecycling(s.Recycling, l)))
	mux.Handle("GET /api/account/recycling", withAuth(handleListRecycling(s.Recycling, l)))
	mux.Handle("PATCH /api/account/recycling/{id}", withAuth(handleUpdateRecyclingWeight(s.Recycling, l)))

	mux.Handle("GET /api/rewards", withAuth(handleListRewards(s.Catalog, l)))
	mux.Handle("GET /api/rewards/{id}", withAuth(handleGetReward(s.Catalog, l)))

	mux.Handle("POST /api/redemptions", withAuth(handleRedeem(s.Redemption, l)))
	mux.Handle("GET /api/redemptions", withAuth(handleListRedemptions(s.Redemption, l)))
	mux.Handle("GET /api/redemptions/{id}", withAuth(handleGetRedemption(s.Redemption, l)))
	mux.Handle("POST /api/redemptions/{id}/cancel", withAuth(handleCancelRedemption(s.Redemption, l)))

	mux.Handle("GET /api/leaderboard", withAuth(handleLeaderboard(s.Account, l)))

	mux.Handle("POST /api/admin/accounts", withAdmin(handleOpenAccount(s.Account, l)))
	mux.Handle("POST /api/admin/rewards", withAdmin(handleAddReward(s.Catalog, l)))
	mux.Handle("PATCH /api/admin/redemptions/{id}", withAdmin(handleUpdateRedemption(s.Redemption, l)))
	mux.Handle("PATCH /api/admin/recycling/{id}/status", withAdmin(handleSetRecyclingStatus(s.Recycling, l)))
	mux.Handle("DELETE /api/admin/recycling/{id}", withAdmin(handleDeleteRecycling(s.Recycling, l)))

	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics)
	}

	handler := chain(mux,
		append([]func(http.Handler) http.Handler{middleware.AccessLog(l)}, mds...)...,
	)

	return handler
}

type authService interface {
	// Get request and return principal if it authenticated or error
	Auth(r *http.Request) (models.Principal, error)
}

type accountService interface {
	// Has to return apperrors.ErrAccountAlreadyExists if account exists
	Open(ctx context.Context, id uuid.UUID, displayName string) (models.Account, error)
	GetBalance(ctx context.Context, id uuid.UUID) (models.Balance, error)
	TopEarners(ctx context.Context, limit int) ([]models.Account, error)
}

type recyclingService interface {
	Submit(ctx context.Context, sub recycling.Submission) (recycling.Result, error)
	UpdateWeight(ctx context.Context, entryID uuid.UUID, ownerID uuid.UUID, weightKg decimal.Decimal) (recycling.Result, error)
	Delete(ctx context.Context, entryID uuid.UUID) (models.Balance, error)
	SetStatus(ctx context.Context, entryID uuid.UUID, status models.EntryStatus) (models.RecyclingEntry, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.RecyclingEntry, error)
}

type catalogService interface {
	Get(ctx context.Context, id uuid.UUID) (models.Reward, error)
	List(ctx context.Context) ([]models.Reward, error)
	Add(ctx context.Context, reward models.Reward) (models.Reward, error)
}

type redemptionService interface {
	Redeem(ctx context.Context, accountID uuid.UUID, rewardID uuid.UUID, shipping models.ShippingInfo) (redemption.Receipt, error)
	Cancel(ctx context.Context, redemptionID uuid.UUID, ownerID uuid.UUID) (decimal.Decimal, error)
	Update(ctx context.Context, redemptionID uuid.UUID, upd repository.RedemptionUpdate) (models.Redemption, error)
	Get(ctx context.Context, redemptionID uuid.UUID, ownerID uuid.UUID) (models.Redemption, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Redemption, error)
}
