package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/service/recycling"
	"github.com/nkiryanov/greenpoints/internal/service/validate"
)

// Message published by collection points
type Message struct {
	ID        uuid.UUID       `json:"id" validate:"required"`
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	Category  string          `json:"category" validate:"required,waste_category"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
}

func decode(value []byte) (recycling.Submission, error) {
	var m Message
	if err := json.Unmarshal(value, &m); err != nil {
		return recycling.Submission{}, fmt.Errorf("malformed json: %w", err)
	}
	if err := validate.Model(m); err != nil {
		return recycling.Submission{}, err
	}

	return recycling.Submission{
		EntryID:   m.ID,
		AccountID: m.AccountID,
		Category:  models.WasteCategory(m.Category),
		WeightKg:  m.WeightKg,
	}, nil
}

type Consumer struct {
	countWorkers  int
	alertAttempts int
	retryDelay    time.Duration
	maxRetryDelay time.Duration

	submitter submitter
	logger    logger.Logger
}

// Consume records submissions from in and passes every finished job to done
// Jobs interrupted by shutdown are not passed, so they stay uncommitted
func (c *Consumer) Consume(ctx context.Context, in <-chan job, done chan<- job) <-chan struct{} {
	idleStopped := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < c.countWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.worker(ctx, in, done)
		}()
	}

	go func() {
		defer close(idleStopped)
		wg.Wait()
		c.logger.Debug("Consumer stopped")
	}()

	return idleStopped
}

func (c *Consumer) worker(ctx context.Context, in <-chan job, done chan<- job) {
	for {
		select {
		case <-ctx.Done():
			return

		case j, ok := <-in:
			if !ok {
				c.logger.Debug("Consumer worker stopped, input channel closed")
				return
			}

			if !c.process(ctx, j) {
				return
			}
			done <- j
		}
	}
}

// Returns false if shutdown interrupted the job.
// Failures other than business outcomes are retried until the submission is recorded,
// a message is never committed before its points are in the ledger
func (c *Consumer) process(ctx context.Context, j job) bool {
	sub, err := decode(j.msg.Value)
	if err != nil {
		c.logger.Warn("Skipping malformed submission", "error", err, "partition", j.msg.Partition, "offset", j.msg.Offset)
		return true
	}

	attempt := 0
	submit := func() error {
		attempt++
		_, err := c.submitter.Submit(ctx, sub)
		switch {
		case err == nil:
			return nil
		case apperrors.IsBusiness(err):
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		args := []any{"error", err, "entry_id", sub.EntryID, "attempt", attempt, "next_in", next}
		if attempt >= c.alertAttempts {
			c.logger.Error("Submission keeps failing, holding it uncommitted", args...)
			return
		}
		c.logger.Warn("Submission failed, retrying", args...)
	}

	err = backoff.RetryNotify(submit, backoff.WithContext(c.backOff(), ctx), notify)

	switch {
	case err == nil:
		c.logger.Debug("Submission recorded", "entry_id", sub.EntryID, "account_id", sub.AccountID, "attempts", attempt)
		return true

	case errors.Is(err, apperrors.ErrEntryAlreadyExists):
		c.logger.Debug("Submission already recorded", "entry_id", sub.EntryID)
		return true

	case apperrors.IsBusiness(err):
		c.logger.Warn("Submission rejected", "error", err, "entry_id", sub.EntryID, "account_id", sub.AccountID)
		return true

	default:
		// Only shutdown stops the retries
		return false
	}
}

// Growing delays between attempts, never gives up on its own
func (c *Consumer) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = c.maxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
