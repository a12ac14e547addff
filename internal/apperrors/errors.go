package apperrors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error kinds. Concrete errors below wrap one of them, so callers may match either
// the kind (errors.Is(err, ErrNotFound)) or the exact error.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidState      = errors.New("invalid state")
	ErrTransactionFailed = errors.New("transaction failed")

	ErrBalanceInsufficient = errors.New("insufficient balance")
)

var (
	ErrAccountNotFound      = fmt.Errorf("account %w", ErrNotFound)
	ErrAccountAlreadyExists = errors.New("account already exists")

	ErrRewardNotFound = fmt.Errorf("reward %w", ErrNotFound)

	ErrRedemptionNotFound   = fmt.Errorf("redemption %w", ErrNotFound)
	ErrRedemptionNotPending = fmt.Errorf("%w: only pending redemptions can be cancelled", ErrInvalidState)

	ErrEntryNotFound      = fmt.Errorf("recycling entry %w", ErrNotFound)
	ErrEntryAlreadyExists = errors.New("recycling entry already exists")
)

// InsufficientBalanceError reports how many points an operation needed and how many were available
type InsufficientBalanceError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: required %s, available %s", e.Required, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrBalanceInsufficient
}

func NewInsufficientBalance(required, available decimal.Decimal) error {
	return &InsufficientBalanceError{Required: required, Available: available}
}

// Invalid wraps a validation message into ErrInvalidInput
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsBusiness reports whether err is an expected business outcome
// Such errors are returned to callers as is and never retried
func IsBusiness(err error) bool {
	for _, target := range []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrInvalidState,
		ErrBalanceInsufficient,
		ErrAccountAlreadyExists,
		ErrEntryAlreadyExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}
