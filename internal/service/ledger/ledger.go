// Package ledger holds what every balance-moving service does around its transaction:
// mapping failures to business or transaction errors, and the post-commit side effects.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/events"
	"github.com/nkiryanov/greenpoints/internal/logger"
	"github.com/nkiryanov/greenpoints/internal/metrics"
)

const afterCommitTimeout = 3 * time.Second

type balanceInvalidator interface {
	InvalidateBalance(ctx context.Context, accountID uuid.UUID) error
}

type Hooks struct {
	cache     balanceInvalidator
	publisher events.Publisher
	metrics   *metrics.LedgerMetrics
	l         logger.Logger
}

type Option func(*Hooks)

func WithCache(c balanceInvalidator) Option {
	return func(h *Hooks) { h.cache = c }
}

func WithPublisher(p events.Publisher) Option {
	return func(h *Hooks) { h.publisher = p }
}

func WithMetrics(m *metrics.LedgerMetrics) Option {
	return func(h *Hooks) { h.metrics = m }
}

func NewHooks(l logger.Logger, opts ...Option) *Hooks {
	h := &Hooks{
		publisher: events.Discard{},
		l:         l,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// AfterCommit runs side effects of a committed balance change
// The change is already durable, so failures here are only logged
func (h *Hooks) AfterCommit(ctx context.Context, op string, e events.Event) {
	h.metrics.Observe(op, metrics.OutcomeOK)
	spendable, _ := e.SpendableDelta.Float64()
	h.metrics.AddPoints(spendable)

	// Request may already be gone, the cache must be dropped anyway
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), afterCommitTimeout)
	defer cancel()

	if h.cache != nil {
		if err := h.cache.InvalidateBalance(ctx, e.AccountID); err != nil {
			h.l.Warn("Failed to invalidate cached balance", "account_id", e.AccountID, "error", err)
		}
	}

	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := h.publisher.Publish(ctx, e); err != nil {
		h.l.Warn("Failed to publish ledger event", "type", e.Type, "subject_id", e.SubjectID, "error", err)
	}
}

// Fail records a failed operation and returns the error the caller should see
// Business errors pass through unchanged. Anything else is logged with args and
// reported as apperrors.ErrTransactionFailed
func (h *Hooks) Fail(op string, err error, args ...any) error {
	if apperrors.IsBusiness(err) {
		h.metrics.Observe(op, metrics.OutcomeRejected)
		return err
	}

	h.metrics.Observe(op, metrics.OutcomeFailed)
	h.l.Error("Ledger operation failed", append([]any{"op", op, "error", err}, args...)...)

	return fmt.Errorf("%s: %w", op, apperrors.ErrTransactionFailed)
}
