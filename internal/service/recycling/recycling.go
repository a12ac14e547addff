package recycling

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/events"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/points"
	"github.com/nkiryanov/greenpoints/internal/repository"
	"github.com/nkiryanov/greenpoints/internal/service/ledger"
)

const (
	opSubmit       = "recycling.submit"
	opUpdateWeight = "recycling.update_weight"
	opDelete       = "recycling.delete"
	opSetStatus    = "recycling.set_status"
)

type RecyclingService struct {
	storage repository.Storage
	hooks   *ledger.Hooks
}

func NewService(storage repository.Storage, hooks *ledger.Hooks) *RecyclingService {
	return &RecyclingService{
		storage: storage,
		hooks:   hooks,
	}
}

type Submission struct {
	// Optional. Given id makes the submission idempotent: a second one fails with apperrors.ErrEntryAlreadyExists
	EntryID uuid.UUID

	AccountID uuid.UUID
	Category  models.WasteCategory
	WeightKg  decimal.Decimal
}

// Entry with the account balance right after the change
type Result struct {
	Entry   models.RecyclingEntry
	Balance models.Balance
}

// Submit records the entry and grants its points in one transaction
// Points are granted immediately, whatever the entry status becomes later
func (s *RecyclingService) Submit(ctx context.Context, sub Submission) (Result, error) {
	var res Result

	if !sub.Category.IsValid() {
		return res, s.hooks.Fail(opSubmit, apperrors.Invalid("unknown waste category %q", sub.Category))
	}
	pts, err := points.Compute(sub.WeightKg)
	if err != nil {
		return res, s.hooks.Fail(opSubmit, err)
	}
	if sub.EntryID == uuid.Nil {
		sub.EntryID = uuid.New()
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		if _, err := storage.Account().GetAccount(ctx, sub.AccountID, true); err != nil {
			return err
		}

		entry, err := storage.Recycling().CreateEntry(ctx, models.RecyclingEntry{
			ID:              sub.EntryID,
			AccountID:       sub.AccountID,
			Category:        sub.Category,
			WeightKg:        sub.WeightKg,
			Status:          models.EntryPending,
			EarnedPoints:    pts.Earned,
			SpendablePoints: pts.Spendable,
		})
		if err != nil {
			return err
		}

		account, err := storage.Account().Credit(ctx, sub.AccountID, pts.Earned, pts.Spendable)
		if err != nil {
			return err
		}

		res = Result{Entry: entry, Balance: account.Balance()}
		return nil
	})
	if err != nil {
		return Result{}, s.hooks.Fail(opSubmit, err,
			"account_id", sub.AccountID, "entry_id", sub.EntryID, "weight_kg", sub.WeightKg, "spendable_delta", pts.Spendable)
	}

	s.hooks.AfterCommit(ctx, opSubmit, entryEvent(events.RecyclingSubmitted, res, pts))
	return res, nil
}

// UpdateWeight recomputes the entry points and applies the difference to the account
// With non-zero ownerID entries of other accounts are reported as not found
func (s *RecyclingService) UpdateWeight(ctx context.Context, entryID uuid.UUID, ownerID uuid.UUID, weightKg decimal.Decimal) (Result, error) {
	var (
		res   Result
		delta points.Points
	)

	newPts, err := points.Compute(weightKg)
	if err != nil {
		return res, s.hooks.Fail(opUpdateWeight, err)
	}

	err = s.storage.InTx(ctx, func(storage repository.Storage) error {
		entry, err := storage.Recycling().GetEntry(ctx, entryID, true)
		if err != nil {
			return err
		}
		if ownerID != uuid.Nil && entry.AccountID != ownerID {
			return apperrors.ErrEntryNotFound
		}

		oldPts := points.Points{Earned: entry.EarnedPoints, Spendable: entry.SpendablePoints}
		delta = newPts.Sub(oldPts)

		entry.WeightKg = weightKg
		entry.EarnedPoints = newPts.Earned
		entry.SpendablePoints = newPts.Spendable
		entry, err = storage.Recycling().UpdateEntryWeight(ctx, entry)
		if err != nil {
			return err
		}

		account, err := storage.Account().Credit(ctx, entry.AccountID, delta.Earned, delta.Spendable)
		if err != nil {
			return fmt.Errorf("reducing entry weight: %w", err)
		}

		res = Result{Entry: entry, Balance: account.Balance()}
		return nil
	})
	if err != nil {
		return Result{}, s.hooks.Fail(opUpdateWeight, err,
			"entry_id", entryID, "weight_kg", weightKg, "spendable_delta", delta.Spendable)
	}

	s.hooks.AfterCommit(ctx, opUpdateWeight, entryEvent(events.RecyclingUpdated, res, delta))
	return res, nil
}

// Delete removes the entry and takes its granted points back
// Fails with insufficient balance when those points were already spent
func (s *RecyclingService) Delete(ctx context.Context, entryID uuid.UUID) (models.Balance, error) {
	var (
		res      Result
		reversal points.Points
	)

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		entry, err := storage.Recycling().GetEntry(ctx, entryID, true)
		if err != nil {
			return err
		}

		reversal = points.Points{Earned: entry.EarnedPoints, Spendable: entry.SpendablePoints}.Neg()

		if err := storage.Recycling().DeleteEntry(ctx, entryID); err != nil {
			return err
		}

		account, err := storage.Account().Credit(ctx, entry.AccountID, reversal.Earned, reversal.Spendable)
		if err != nil {
			return fmt.Errorf("reversing entry points: %w", err)
		}

		res = Result{Entry: entry, Balance: account.Balance()}
		return nil
	})
	if err != nil {
		return models.Balance{}, s.hooks.Fail(opDelete, err, "entry_id", entryID, "spendable_delta", reversal.Spendable)
	}

	s.hooks.AfterCommit(ctx, opDelete, entryEvent(events.RecyclingDeleted, res, reversal))
	return res.Balance, nil
}

// SetStatus changes entry status only, points stay where they are
func (s *RecyclingService) SetStatus(ctx context.Context, entryID uuid.UUID, status models.EntryStatus) (models.RecyclingEntry, error) {
	if !status.IsValid() {
		return models.RecyclingEntry{}, s.hooks.Fail(opSetStatus, apperrors.Invalid("unknown entry status %q", status))
	}

	entry, err := s.storage.Recycling().SetEntryStatus(ctx, entryID, status)
	if err != nil {
		return entry, s.hooks.Fail(opSetStatus, err, "entry_id", entryID, "status", status)
	}

	return entry, nil
}

func (s *RecyclingService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.RecyclingEntry, error) {
	entries, err := s.storage.Recycling().ListEntries(ctx, repository.ListEntriesOpts{AccountID: accountID})
	if err != nil {
		return nil, s.hooks.Fail("recycling.list", err, "account_id", accountID)
	}

	return entries, nil
}

func entryEvent(t events.Type, res Result, delta points.Points) events.Event {
	return events.Event{
		Type:           t,
		AccountID:      res.Entry.AccountID,
		SubjectID:      res.Entry.ID,
		EarnedDelta:    delta.Earned,
		SpendableDelta: delta.Spendable,
		Balance:        res.Balance.SpendableBalance,
	}
}
