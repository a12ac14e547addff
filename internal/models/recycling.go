package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WasteCategory string

const (
	CategoryPlastic     WasteCategory = "plastic"
	CategoryPaper       WasteCategory = "paper"
	CategoryGlass       WasteCategory = "glass"
	CategoryMetal       WasteCategory = "metal"
	CategoryElectronics WasteCategory = "electronics"
	CategoryOrganic     WasteCategory = "organic"
	CategoryTextile     WasteCategory = "textile"
	CategoryOther       WasteCategory = "other"
)

func (c WasteCategory) IsValid() bool {
	switch c {
	case CategoryPlastic, CategoryPaper, CategoryGlass, CategoryMetal,
		CategoryElectronics, CategoryOrganic, CategoryTextile, CategoryOther:
		return true
	default:
		return false
	}
}

// Entry status is informational: changing it never moves points
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryVerified  EntryStatus = "verified"
	EntryProcessed EntryStatus = "processed"
	EntryCompleted EntryStatus = "completed"
	EntryRejected  EntryStatus = "rejected"
)

func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryPending, EntryVerified, EntryProcessed, EntryCompleted, EntryRejected:
		return true
	default:
		return false
	}
}

type RecyclingEntry struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Category  WasteCategory
	WeightKg  decimal.Decimal
	Status    EntryStatus

	// Points granted when the entry was created or last edited
	EarnedPoints    decimal.Decimal
	SpendablePoints decimal.Decimal

	CreatedAt  time.Time
	ModifiedAt time.Time
}
