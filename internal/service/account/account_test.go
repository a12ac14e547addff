package account

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/cache"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
	"github.com/nkiryanov/greenpoints/internal/repository/postgres"
	"github.com/nkiryanov/greenpoints/internal/testutil"
)

// In memory stand-in for the redis cache
// In-memory cache with the same generation rules as the redis one
type mapCache struct {
	data map[uuid.UUID]models.Balance
	gens map[uuid.UUID]int64
	sets int

	// Called after the generation is handed out, lets a test commit a change mid-read
	afterGeneration func(id uuid.UUID)
}

func newMapCache() *mapCache {
	return &mapCache{data: map[uuid.UUID]models.Balance{}, gens: map[uuid.UUID]int64{}}
}

func (c *mapCache) GetBalance(_ context.Context, id uuid.UUID) (models.Balance, error) {
	b, ok := c.data[id]
	if !ok {
		return b, cache.ErrMiss
	}
	return b, nil
}

func (c *mapCache) Generation(_ context.Context, id uuid.UUID) (int64, error) {
	gen := c.gens[id]
	if c.afterGeneration != nil {
		c.afterGeneration(id)
	}
	return gen, nil
}

func (c *mapCache) SetBalance(_ context.Context, b models.Balance, gen int64) error {
	if c.gens[b.AccountID] != gen {
		return cache.ErrStale
	}
	c.sets++
	c.data[b.AccountID] = b
	return nil
}

func (c *mapCache) InvalidateBalance(id uuid.UUID) {
	c.gens[id]++
	delete(c.data, id)
}

func TestAccount(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	inTx := func(t *testing.T, c balanceCache, fn func(s *AccountService, storage repository.Storage)) {
		testutil.InTx(pg.Pool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			fn(NewService(storage.Account(), c, logger.NewNoOpLogger()), storage)
		})
	}

	t.Run("Open", func(t *testing.T) {
		inTx(t, nil, func(s *AccountService, _ repository.Storage) {
			id := uuid.New()

			account, err := s.Open(t.Context(), id, "  Alice ")

			require.NoError(t, err)
			require.Equal(t, id, account.ID)
			require.Equal(t, "Alice", account.DisplayName, "display name has to be trimmed")
			require.True(t, account.SpendableBalance.IsZero())

			_, err = s.Open(t.Context(), id, "Alice")
			require.ErrorIs(t, err, apperrors.ErrAccountAlreadyExists)

			_, err = s.Open(t.Context(), uuid.New(), "   ")
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)

			_, err = s.Open(t.Context(), uuid.Nil, "Bob")
			require.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	})

	t.Run("GetBalance", func(t *testing.T) {
		t.Run("without cache", func(t *testing.T) {
			inTx(t, nil, func(s *AccountService, storage repository.Storage) {
				account, err := s.Open(t.Context(), uuid.New(), "Alice")
				require.NoError(t, err)
				_, err = storage.Account().Credit(t.Context(), account.ID, decimal.NewFromInt(50), decimal.NewFromInt(500))
				require.NoError(t, err)

				b, err := s.GetBalance(t.Context(), account.ID)

				require.NoError(t, err)
				require.True(t, b.EarnedTotal.Equal(decimal.NewFromInt(50)))
				require.True(t, b.SpendableBalance.Equal(decimal.NewFromInt(500)))

				_, err = s.GetBalance(t.Context(), uuid.New())
				require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
			})
		})

		t.Run("read through cache", func(t *testing.T) {
			c := newMapCache()

			inTx(t, c, func(s *AccountService, storage repository.Storage) {
				account, err := s.Open(t.Context(), uuid.New(), "Alice")
				require.NoError(t, err)

				first, err := s.GetBalance(t.Context(), account.ID)
				require.NoError(t, err)
				require.Equal(t, 1, c.sets, "miss has to fill the cache")

				// Balance changes behind the cache back: cached value is served until invalidated
				_, err = storage.Account().Credit(t.Context(), account.ID, decimal.NewFromInt(1), decimal.NewFromInt(10))
				require.NoError(t, err)

				second, err := s.GetBalance(t.Context(), account.ID)
				require.NoError(t, err)
				require.Equal(t, first, second)
				require.Equal(t, 1, c.sets)

				c.InvalidateBalance(account.ID)
				third, err := s.GetBalance(t.Context(), account.ID)
				require.NoError(t, err)
				require.True(t, third.SpendableBalance.Equal(decimal.NewFromInt(10)))
			})
		})

		t.Run("change during fill is not cached", func(t *testing.T) {
			c := newMapCache()

			inTx(t, c, func(s *AccountService, storage repository.Storage) {
				account, err := s.Open(t.Context(), uuid.New(), "Alice")
				require.NoError(t, err)

				// Another request commits a redeem after this read took the generation
				c.afterGeneration = func(id uuid.UUID) {
					c.InvalidateBalance(id)
				}

				b, err := s.GetBalance(t.Context(), account.ID)
				require.NoError(t, err, "stale fill must not fail the read")
				require.True(t, b.SpendableBalance.IsZero())
				require.Equal(t, 0, c.sets, "balance read before the change must not be cached")

				c.afterGeneration = nil
				_, err = storage.Account().Credit(t.Context(), account.ID, decimal.NewFromInt(1), decimal.NewFromInt(10))
				require.NoError(t, err)

				b, err = s.GetBalance(t.Context(), account.ID)
				require.NoError(t, err)
				require.True(t, b.SpendableBalance.Equal(decimal.NewFromInt(10)), "next read sees the fresh balance")
				require.Equal(t, 1, c.sets)
			})
		})
	})

	t.Run("TopEarners", func(t *testing.T) {
		inTx(t, nil, func(s *AccountService, storage repository.Storage) {
			for i := range 12 {
				account, err := s.Open(t.Context(), uuid.New(), "user")
				require.NoError(t, err)
				_, err = storage.Account().Credit(t.Context(), account.ID, decimal.NewFromInt(int64(i+1)), decimal.Zero)
				require.NoError(t, err)
			}

			top, err := s.TopEarners(t.Context(), 0)
			require.NoError(t, err)
			require.Len(t, top, 10, "zero limit means default")
			require.True(t, top[0].EarnedTotal.Equal(decimal.NewFromInt(12)))

			top, err = s.TopEarners(t.Context(), 3)
			require.NoError(t, err)
			require.Len(t, top, 3)

			top, err = s.TopEarners(t.Context(), 1000)
			require.NoError(t, err)
			require.Len(t, top, 12)
		})
	})
}
