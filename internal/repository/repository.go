package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/models"
)

// Account repository interface
// It owns every balance mutation: callers never read-modify-write balances themselves
type AccountRepo interface {
	// Create account with zero balances
	// If account exists already has to return apperrors.ErrAccountAlreadyExists
	CreateAccount(ctx context.Context, id uuid.UUID, displayName string) (models.Account, error)

	// Get account by id. With forUpdate the row stays locked until the transaction ends
	// If account not found must return apperrors.ErrAccountNotFound
	GetAccount(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Account, error)

	// Add deltas to both balances in one conditional update
	// If the spendable balance would become negative must return *apperrors.InsufficientBalanceError
	// If account not found must return apperrors.ErrAccountNotFound
	Credit(ctx context.Context, id uuid.UUID, earnedDelta, spendableDelta decimal.Decimal) (models.Account, error)

	// Accounts ordered by lifetime points
	ListTopEarners(ctx context.Context, limit int) ([]models.Account, error)
}

type ListEntriesOpts struct {
	AccountID uuid.UUID
	Statuses  []models.EntryStatus
	Limit     int
}

type RecyclingRepo interface {
	// Has to return apperrors.ErrEntryAlreadyExists if the entry id is taken
	CreateEntry(ctx context.Context, entry models.RecyclingEntry) (models.RecyclingEntry, error)

	// Has to return apperrors.ErrEntryNotFound if entry not exists
	GetEntry(ctx context.Context, id uuid.UUID, forUpdate bool) (models.RecyclingEntry, error)

	// Replace weight and granted points
	UpdateEntryWeight(ctx context.Context, entry models.RecyclingEntry) (models.RecyclingEntry, error)
	SetEntryStatus(ctx context.Context, id uuid.UUID, status models.EntryStatus) (models.RecyclingEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error

	ListEntries(ctx context.Context, opts ListEntriesOpts) ([]models.RecyclingEntry, error)
}

type RewardRepo interface {
	CreateReward(ctx context.Context, reward models.Reward) (models.Reward, error)

	// Has to return apperrors.ErrRewardNotFound if reward not exists
	GetReward(ctx context.Context, id uuid.UUID) (models.Reward, error)
	ListRewards(ctx context.Context) ([]models.Reward, error)
}

// Optional fields of a redemption update. Nil means unchanged
type RedemptionUpdate struct {
	Shipping *models.ShippingInfo
	Status   *models.RedemptionStatus
}

type RedemptionRepo interface {
	CreateRedemption(ctx context.Context, r models.Redemption) (models.Redemption, error)

	// Has to return apperrors.ErrRedemptionNotFound if redemption not exists
	GetRedemption(ctx context.Context, id uuid.UUID, forUpdate bool) (models.Redemption, error)
	UpdateRedemption(ctx context.Context, id uuid.UUID, upd RedemptionUpdate) (models.Redemption, error)
	DeleteRedemption(ctx context.Context, id uuid.UUID) error

	ListRedemptions(ctx context.Context, accountID uuid.UUID) ([]models.Redemption, error)
}

type Storage interface {
	Account() AccountRepo
	Recycling() RecyclingRepo
	Reward() RewardRepo
	Redemption() RedemptionRepo

	// Run fn in a transaction: commit if fn returns nil, rollback otherwise
	// Calls may be nested, the inner call uses a savepoint
	InTx(ctx context.Context, fn func(Storage) error) error
}
