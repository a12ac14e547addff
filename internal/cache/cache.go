// Package cache keeps account balances in Redis. The database stays the source of truth:
// entries are dropped after every committed balance change and expire on their own.
//
// Every invalidation bumps the account generation. A read-through fill takes the generation
// before reading the database and is stored only if no invalidation happened since, so a
// slow reader never puts back a balance older than the last committed change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nkiryanov/greenpoints/internal/models"
)

const (
	defaultTTL = 5 * time.Minute
	keyPrefix  = "balance:"
	genPrefix  = "balance:gen:"
)

var (
	// Returned by GetBalance when nothing is cached for the account
	ErrMiss = errors.New("cache miss")

	// Returned by SetBalance when the balance was invalidated after the generation was taken
	ErrStale = errors.New("cached balance is stale")
)

type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect parses a redis:// url and pings the server
func Connect(ctx context.Context, url string) (*BalanceCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.MaxRetries = 5
	opts.DialTimeout = 10 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(client, defaultTTL), nil
}

func New(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func (c *BalanceCache) GetBalance(ctx context.Context, accountID uuid.UUID) (models.Balance, error) {
	var b models.Balance

	val, err := c.client.Get(ctx, key(accountID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return b, ErrMiss
	case err != nil:
		return b, fmt.Errorf("redis get: %w", err)
	}

	if err := json.Unmarshal(val, &b); err != nil {
		return b, fmt.Errorf("decode cached balance: %w", err)
	}

	return b, nil
}

// Generation of the account balance, zero if it was never invalidated or the counter expired
func (c *BalanceCache) Generation(ctx context.Context, accountID uuid.UUID) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(accountID)).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

// SetBalance stores b only if the account generation is still gen
func (c *BalanceCache) SetBalance(ctx context.Context, b models.Balance, gen int64) error {
	val, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode balance: %w", err)
	}

	gk := genKey(b.AccountID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return ErrStale
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(b.AccountID), val, c.ttl)
			return nil
		})
		return err
	}, gk)

	switch {
	case errors.Is(err, redis.TxFailedErr):
		// Invalidated between the check and the write
		return ErrStale
	case err != nil && !errors.Is(err, ErrStale):
		return fmt.Errorf("redis set: %w", err)
	}
	return err
}

// InvalidateBalance drops the cached balance and bumps the generation in one transaction
func (c *BalanceCache) InvalidateBalance(ctx context.Context, accountID uuid.UUID) error {
	gk := genKey(accountID)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, gk)
		// Generation only has to outlive the fills in flight
		pipe.Expire(ctx, gk, c.ttl)
		pipe.Del(ctx, key(accountID))
		return nil
	})
	return err
}

func (c *BalanceCache) Close() error {
	return c.client.Close()
}

func key(accountID uuid.UUID) string {
	return keyPrefix + accountID.String()
}

func genKey(accountID uuid.UUID) string {
	return genPrefix + accountID.String()
}
