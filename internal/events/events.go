// Package events publishes ledger changes for the notification collaborator.
// Events are sent after the transaction commits; delivery is best effort.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	RecyclingSubmitted Type = "recycling.submitted"
	RecyclingUpdated   Type = "recycling.updated"
	RecyclingDeleted   Type = "recycling.deleted"

	RedemptionCreated   Type = "redemption.created"
	RedemptionCancelled Type = "redemption.cancelled"
	RedemptionUpdated   Type = "redemption.updated"
)

type Event struct {
	Type      Type      `json:"type"`
	AccountID uuid.UUID `json:"account_id"`

	// Recycling entry or redemption the event is about
	SubjectID uuid.UUID `json:"subject_id"`

	EarnedDelta    decimal.Decimal `json:"earned_delta"`
	SpendableDelta decimal.Decimal `json:"spendable_delta"`

	// Spendable balance after the change
	Balance decimal.Decimal `json:"balance"`

	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Discard drops every event. Used when no broker is configured
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
