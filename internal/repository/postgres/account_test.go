package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/repository"
	"github.com/nkiryanov/greenpoints/internal/testutil"
)

func inTx(t *testing.T, outerTx DBTX, fn func(pgx.Tx, repository.Storage)) {
	testutil.InTx(outerTx, t, func(innerTx pgx.Tx) {
		storage := NewStorage(innerTx)
		fn(innerTx, storage)
	})
}

func TestAccount(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("CreateAccount", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			id := uuid.New()

			account, err := storage.Account().CreateAccount(t.Context(), id, "Alice")

			require.NoError(t, err, "account has to be created ok")
			require.Equal(t, id, account.ID)
			require.Equal(t, "Alice", account.DisplayName)
			require.True(t, account.EarnedTotal.IsZero(), "new account starts with zero earned points")
			require.True(t, account.SpendableBalance.IsZero(), "new account starts with zero spendable points")
			require.False(t, account.CreatedAt.IsZero())

			t.Run("create duplicate", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().CreateAccount(t.Context(), id, "Alice again")

					require.ErrorIs(t, err, apperrors.ErrAccountAlreadyExists)
				})
			})
		})
	})

	t.Run("GetAccount", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			created, err := storage.Account().CreateAccount(t.Context(), uuid.New(), "Bob")
			require.NoError(t, err)

			for _, forUpdate := range []bool{false, true} {
				got, err := storage.Account().GetAccount(t.Context(), created.ID, forUpdate)

				require.NoError(t, err)
				require.Equal(t, created.ID, got.ID)
				require.Equal(t, "Bob", got.DisplayName)
			}

			_, err = storage.Account().GetAccount(t.Context(), uuid.New(), false)
			require.ErrorIs(t, err, apperrors.ErrAccountNotFound, "should return well known error")
		})
	})

	t.Run("Credit", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			account, err := storage.Account().CreateAccount(t.Context(), uuid.New(), "Carol")
			require.NoError(t, err)

			t.Run("grant", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					updated, err := storage.Account().Credit(t.Context(), account.ID, decimal.NewFromInt(50), decimal.NewFromInt(500))

					require.NoError(t, err)
					require.True(t, updated.EarnedTotal.Equal(decimal.NewFromInt(50)))
					require.True(t, updated.SpendableBalance.Equal(decimal.NewFromInt(500)))

					stored, err := storage.Account().GetAccount(t.Context(), account.ID, false)
					require.NoError(t, err)
					require.True(t, stored.SpendableBalance.Equal(updated.SpendableBalance), "stored balance should match returned one")
				})
			})

			t.Run("debit to zero", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().Credit(t.Context(), account.ID, decimal.NewFromInt(5), decimal.NewFromInt(50))
					require.NoError(t, err)

					updated, err := storage.Account().Credit(t.Context(), account.ID, decimal.Zero, decimal.NewFromInt(-50))

					require.NoError(t, err)
					require.True(t, updated.SpendableBalance.IsZero(), "whole balance may be spent")
					require.True(t, updated.EarnedTotal.Equal(decimal.NewFromInt(5)), "spending keeps lifetime points")
				})
			})

			t.Run("debit below zero", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().Credit(t.Context(), account.ID, decimal.NewFromInt(10), decimal.NewFromInt(100))
					require.NoError(t, err)

					_, err = storage.Account().Credit(t.Context(), account.ID, decimal.Zero, decimal.NewFromInt(-300))

					require.ErrorIs(t, err, apperrors.ErrBalanceInsufficient)
					var balanceErr *apperrors.InsufficientBalanceError
					require.True(t, errors.As(err, &balanceErr))
					require.True(t, balanceErr.Required.Equal(decimal.NewFromInt(300)))
					require.True(t, balanceErr.Available.Equal(decimal.NewFromInt(100)))

					stored, err := storage.Account().GetAccount(t.Context(), account.ID, false)
					require.NoError(t, err)
					require.True(t, stored.SpendableBalance.Equal(decimal.NewFromInt(100)), "rejected debit must not change balance")
				})
			})

			t.Run("unknown account", func(t *testing.T) {
				inTx(t, tx, func(_ pgx.Tx, storage repository.Storage) {
					_, err := storage.Account().Credit(t.Context(), uuid.New(), decimal.NewFromInt(1), decimal.NewFromInt(1))

					require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
				})
			})
		})
	})

	t.Run("ListTopEarners", func(t *testing.T) {
		inTx(t, pg.Pool, func(tx pgx.Tx, storage repository.Storage) {
			for i, earned := range []int64{10, 30, 20} {
				a, err := storage.Account().CreateAccount(t.Context(), uuid.New(), []string{"low", "top", "mid"}[i])
				require.NoError(t, err)
				_, err = storage.Account().Credit(t.Context(), a.ID, decimal.NewFromInt(earned), decimal.Zero)
				require.NoError(t, err)
			}

			top, err := storage.Account().ListTopEarners(t.Context(), 2)

			require.NoError(t, err)
			require.Len(t, top, 2)
			require.Equal(t, "top", top[0].DisplayName)
			require.Equal(t, "mid", top[1].DisplayName)
		})
	})
}

func TestStorage_InTx(t *testing.T) {
	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	storage := NewStorage(pg.Pool)

	t.Run("commit", func(t *testing.T) {
		id := uuid.New()

		err := storage.InTx(t.Context(), func(s repository.Storage) error {
			_, err := s.Account().CreateAccount(t.Context(), id, "committed")
			return err
		})
		require.NoError(t, err)

		_, err = storage.Account().GetAccount(t.Context(), id, false)
		require.NoError(t, err, "account must be visible after commit")
	})

	t.Run("rollback", func(t *testing.T) {
		id := uuid.New()
		boom := errors.New("boom")

		err := storage.InTx(t.Context(), func(s repository.Storage) error {
			_, err := s.Account().CreateAccount(t.Context(), id, "rolled back")
			require.NoError(t, err)
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = storage.Account().GetAccount(t.Context(), id, false)
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound, "account must be gone after rollback")
	})

	t.Run("nested rollback keeps outer changes", func(t *testing.T) {
		outerID, innerID := uuid.New(), uuid.New()

		err := storage.InTx(t.Context(), func(s repository.Storage) error {
			_, err := s.Account().CreateAccount(t.Context(), outerID, "outer")
			require.NoError(t, err)

			innerErr := s.InTx(t.Context(), func(s repository.Storage) error {
				_, err := s.Account().CreateAccount(t.Context(), innerID, "inner")
				require.NoError(t, err)
				return errors.New("inner failed")
			})
			require.Error(t, innerErr)
			return nil
		})
		require.NoError(t, err)

		_, err = storage.Account().GetAccount(t.Context(), outerID, false)
		require.NoError(t, err)
		_, err = storage.Account().GetAccount(t.Context(), innerID, false)
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})

	t.Run("timeout rolls back", func(t *testing.T) {
		id := uuid.New()
		limited := NewStorage(pg.Pool, WithTxTimeout(100*time.Millisecond))

		err := limited.InTx(t.Context(), func(s repository.Storage) error {
			_, err := s.Account().CreateAccount(t.Context(), id, "slow")
			require.NoError(t, err)

			time.Sleep(200 * time.Millisecond)
			return nil
		})
		require.ErrorIs(t, err, context.DeadlineExceeded, "commit after deadline must fail")

		_, err = storage.Account().GetAccount(t.Context(), id, false)
		require.ErrorIs(t, err, apperrors.ErrAccountNotFound, "account must be gone after timed out tx")
	})
}
