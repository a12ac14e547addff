package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RedemptionStatus string

const (
	RedemptionPending   RedemptionStatus = "pending"
	RedemptionShipped   RedemptionStatus = "shipped"
	RedemptionDelivered RedemptionStatus = "delivered"
)

func (s RedemptionStatus) rank() int {
	switch s {
	case RedemptionPending:
		return 1
	case RedemptionShipped:
		return 2
	case RedemptionDelivered:
		return 3
	default:
		return 0
	}
}

func (s RedemptionStatus) IsValid() bool {
	return s.rank() > 0
}

// CanAdvanceTo reports whether the status may move to next
// Progression is one way: pending -> shipped -> delivered. Staying put is allowed.
func (s RedemptionStatus) CanAdvanceTo(next RedemptionStatus) bool {
	return s.IsValid() && next.IsValid() && next.rank() >= s.rank()
}

type ShippingInfo struct {
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address" validate:"required,max=500"`
	Phone      string `json:"phone" validate:"required,max=50"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
}

type Redemption struct {
	ID        uuid.UUID
	AccountID uuid.UUID

	// Snapshots taken at redemption time
	DisplayName  string
	RewardID     *uuid.UUID // nil once the reward is removed from the catalog
	RewardName   string
	RewardPoints int64

	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal

	Shipping   ShippingInfo
	Status     RedemptionStatus
	RedeemedAt time.Time
	ModifiedAt time.Time
}
