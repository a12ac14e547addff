package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nkiryanov/greenpoints/internal/repository"
)

// Connection or transaction: both *pgxpool.Pool and pgx.Tx satisfy it
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Query builder configured for postgres placeholders
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Storage struct {
	db DBTX

	// Upper bound for a whole transaction, including commit. Zero means no limit
	txTimeout time.Duration
}

type Option func(*Storage)

func WithTxTimeout(d time.Duration) Option {
	return func(s *Storage) {
		s.txTimeout = d
	}
}

func NewStorage(db DBTX, opts ...Option) repository.Storage {
	s := &Storage{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Account() repository.AccountRepo {
	return &AccountRepo{DB: s.db}
}

func (s *Storage) Recycling() repository.RecyclingRepo {
	return &RecyclingRepo{DB: s.db}
}

func (s *Storage) Reward() repository.RewardRepo {
	return &RewardRepo{DB: s.db}
}

func (s *Storage) Redemption() repository.RedemptionRepo {
	return &RedemptionRepo{DB: s.db}
}

func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	if s.txTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.txTimeout)
		defer cancel()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		switch err {
		case nil:
			if cerr := tx.Commit(ctx); cerr != nil {
				err = fmt.Errorf("db commit error: %w", cerr)
			}
		default:
			_ = tx.Rollback(ctx)
		}
	}()

	// Nested calls reuse the same deadline, so no timeout for the inner storage
	err = fn(&Storage{db: tx})

	return err
}
