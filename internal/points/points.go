// Package points converts recycled weight into points.
//
// Rates are fixed: every kilogram earns 5 lifetime points, and every earned point
// grants 10 spendable points. Existing user totals depend on these exact values.
package points

import (
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
)

var (
	EarnedPerKg        = decimal.NewFromInt(5)
	SpendablePerEarned = decimal.NewFromInt(10)
	MaxWeightKg        = decimal.NewFromInt(1000)
)

// WeightScale is the number of decimal places a weight may carry (grams).
// Matches the recycling_entries.weight_kg column.
const WeightScale = 3

// Points granted for a recycling entry
type Points struct {
	Earned    decimal.Decimal
	Spendable decimal.Decimal
}

// Compute returns points for the recycled weight
// Weight must be positive, not above MaxWeightKg and have at most WeightScale decimals
func Compute(weightKg decimal.Decimal) (Points, error) {
	if !weightKg.IsPositive() {
		return Points{}, apperrors.Invalid("weight must be positive, got %s kg", weightKg)
	}
	if weightKg.GreaterThan(MaxWeightKg) {
		return Points{}, apperrors.Invalid("weight must not exceed %s kg, got %s kg", MaxWeightKg, weightKg)
	}
	if !weightKg.Equal(weightKg.Truncate(WeightScale)) {
		return Points{}, apperrors.Invalid("weight must have at most %d decimal places, got %s kg", WeightScale, weightKg)
	}

	earned := weightKg.Mul(EarnedPerKg)

	return Points{
		Earned:    earned,
		Spendable: earned.Mul(SpendablePerEarned),
	}, nil
}

// Sub returns p - o, the delta to apply when an entry changes from o to p
func (p Points) Sub(o Points) Points {
	return Points{
		Earned:    p.Earned.Sub(o.Earned),
		Spendable: p.Spendable.Sub(o.Spendable),
	}
}

func (p Points) Neg() Points {
	return Points{Earned: p.Earned.Neg(), Spendable: p.Spendable.Neg()}
}

func (p Points) IsZero() bool {
	return p.Earned.IsZero() && p.Spendable.IsZero()
}
