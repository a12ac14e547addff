package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/cache"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
)

const (
	defaultTopLimit = 10
	maxTopLimit     = 100
)

type balanceCache interface {
	GetBalance(ctx context.Context, accountID uuid.UUID) (models.Balance, error)
	Generation(ctx context.Context, accountID uuid.UUID) (int64, error)

	// Has to return cache.ErrStale and keep the cache untouched if the generation moved
	SetBalance(ctx context.Context, b models.Balance, gen int64) error
}

type AccountService struct {
	accountRepo repository.AccountRepo

	// Optional read-through cache, nil means always read the db
	cache balanceCache

	l logger.Logger
}

func NewService(accountRepo repository.AccountRepo, cache balanceCache, l logger.Logger) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		cache:       cache,
		l:           l,
	}
}

// Open creates account with zero balances for a just registered user
func (s *AccountService) Open(ctx context.Context, id uuid.UUID, displayName string) (models.Account, error) {
	displayName = strings.TrimSpace(displayName)
	if id == uuid.Nil {
		return models.Account{}, apperrors.Invalid("account id is required")
	}
	if displayName == "" {
		return models.Account{}, apperrors.Invalid("display name is required")
	}

	return s.accountRepo.CreateAccount(ctx, id, displayName)
}

func (s *AccountService) GetBalance(ctx context.Context, id uuid.UUID) (models.Balance, error) {
	fill := s.cache != nil
	var gen int64

	if s.cache != nil {
		b, err := s.cache.GetBalance(ctx, id)
		switch {
		case err == nil:
			return b, nil
		case !errors.Is(err, cache.ErrMiss):
			s.l.Warn("Balance cache read failed", "account_id", id, "error", err)
		}

		// Taken before the db read, a change committed after it makes the fill stale
		gen, err = s.cache.Generation(ctx, id)
		if err != nil {
			s.l.Warn("Balance cache generation read failed", "account_id", id, "error", err)
			fill = false
		}
	}

	account, err := s.accountRepo.GetAccount(ctx, id, false)
	if err != nil {
		return models.Balance{}, err
	}

	balance := account.Balance()
	if fill {
		err := s.cache.SetBalance(ctx, balance, gen)
		switch {
		case errors.Is(err, cache.ErrStale):
			s.l.Debug("Balance changed while reading, cache not filled", "account_id", id)
		case err != nil:
			s.l.Warn("Balance cache write failed", "account_id", id, "error", err)
		}
	}

	return balance, nil
}

// TopEarners ranks accounts by lifetime points. Limit is clamped to [1, 100], zero means 10
func (s *AccountService) TopEarners(ctx context.Context, limit int) ([]models.Account, error) {
	switch {
	case limit <= 0:
		limit = defaultTopLimit
	case limit > maxTopLimit:
		limit = maxTopLimit
	}

	return s.accountRepo.ListTopEarners(ctx, limit)
}
