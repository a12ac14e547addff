package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID          uuid.UUID
	DisplayName string
	CreatedAt   time.Time

	// Lifetime points, used for badges and the leaderboard
	EarnedTotal decimal.Decimal

	// Points available for redemption, never negative
	SpendableBalance decimal.Decimal
}

// Balance is the read model of an account served to clients and cached
type Balance struct {
	AccountID        uuid.UUID       `json:"account_id"`
	EarnedTotal      decimal.Decimal `json:"earned_total"`
	SpendableBalance decimal.Decimal `json:"spendable_balance"`
}

func (a Account) Balance() Balance {
	return Balance{
		AccountID:        a.ID,
		EarnedTotal:      a.EarnedTotal,
		SpendableBalance: a.SpendableBalance,
	}
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Principal is the verified caller identity supplied by the session collaborator
type Principal struct {
	AccountID uuid.UUID
	Role      string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
