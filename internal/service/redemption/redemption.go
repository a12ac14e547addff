package redemption

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nkiryanov/greenpoints/internal/apperrors"
	"github.com/nkiryanov/greenpoints/internal/events"
	"github.com/nkiryanov/greenpoints/internal/models"
	"github.com/nkiryanov/greenpoints/internal/repository"
	"github.com/nkiryanov/greenpoints/internal/service/ledger"
	"github.com/nkiryanov/greenpoints/internal/service/validate"
)

const (
	opRedeem = "redemption.redeem"
	opCancel = "redemption.cancel"
	opUpdate = "redemption.update"
)

type RedemptionService struct {
	storage repository.Storage
	hooks   *ledger.Hooks
}

func NewService(storage repository.Storage, hooks *ledger.Hooks) *RedemptionService {
	return &RedemptionService{
		storage: storage,
		hooks:   hooks,
	}
}

type Receipt struct {
	Redemption       models.Redemption
	RemainingBalance decimal.Decimal
}

// Redeem spends reward cost from the account and records a pending redemption
// Both writes commit together; the account row lock serializes concurrent redeems.
// Failures are reported in order: not found, insufficient balance, invalid shipping.
func (s *RedemptionService) Redeem(ctx context.Context, accountID uuid.UUID, rewardID uuid.UUID, shipping models.ShippingInfo) (Receipt, error) {
	var (
		receipt Receipt
		cost    decimal.Decimal
	)

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		account, err := storage.Account().GetAccount(ctx, accountID, true)
		if err != nil {
			return err
		}

		reward, err := storage.Reward().GetReward(ctx, rewardID)
		if err != nil {
			return err
		}

		cost = decimal.NewFromInt(reward.PointCost)
		if account.SpendableBalance.LessThan(cost) {
			return apperrors.NewInsufficientBalance(cost, account.SpendableBalance)
		}

		if err := validate.Model(shipping); err != nil {
			return err
		}

		rd, err := storage.Redemption().CreateRedemption(ctx, models.Redemption{
			ID:            uuid.New(),
			AccountID:     account.ID,
			DisplayName:   account.DisplayName,
			RewardID:      &reward.ID,
			RewardName:    reward.Name,
			RewardPoints:  reward.PointCost,
			BalanceBefore: account.SpendableBalance,
			BalanceAfter:  account.SpendableBalance.Sub(cost),
			Shipping:      shipping,
			Status:        models.RedemptionPending,
		})
		if err != nil {
			return err
		}

		account, err = storage.Account().Credit(ctx, account.ID, decimal.Zero, cost.Neg())
		if err != nil {
			return err
		}

		receipt = Receipt{Redemption: rd, RemainingBalance: account.SpendableBalance}
		return nil
	})
	if err != nil {
		return Receipt{}, s.hooks.Fail(opRedeem, err, "account_id", accountID, "reward_id", rewardID, "cost", cost)
	}

	s.hooks.AfterCommit(ctx, opRedeem, events.Event{
		Type:           events.RedemptionCreated,
		AccountID:      accountID,
		SubjectID:      receipt.Redemption.ID,
		SpendableDelta: cost.Neg(),
		Balance:        receipt.RemainingBalance,
	})
	return receipt, nil
}

// Cancel gives the charged points back and removes a pending redemption
// With non-zero ownerID redemptions of other accounts are reported as not found
func (s *RedemptionService) Cancel(ctx context.Context, redemptionID uuid.UUID, ownerID uuid.UUID) (decimal.Decimal, error) {
	var (
		remaining decimal.Decimal
		rd        models.Redemption
	)

	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		var err error
		rd, err = storage.Redemption().GetRedemption(ctx, redemptionID, true)
		if err != nil {
			return err
		}
		if ownerID != uuid.Nil && rd.AccountID != ownerID {
			return apperrors.ErrRedemptionNotFound
		}
		if rd.Status != models.RedemptionPending {
			return apperrors.ErrRedemptionNotPending
		}

		// Charged amount comes from the redemption, the reward price may have changed since
		refund := decimal.NewFromInt(rd.RewardPoints)
		account, err := storage.Account().Credit(ctx, rd.AccountID, decimal.Zero, refund)
		if err != nil {
			return err
		}

		if err := storage.Redemption().DeleteRedemption(ctx, rd.ID); err != nil {
			return err
		}

		remaining = account.SpendableBalance
		return nil
	})
	if err != nil {
		return decimal.Zero, s.hooks.Fail(opCancel, err, "redemption_id", redemptionID, "refund", rd.RewardPoints)
	}

	s.hooks.AfterCommit(ctx, opCancel, events.Event{
		Type:           events.RedemptionCancelled,
		AccountID:      rd.AccountID,
		SubjectID:      rd.ID,
		SpendableDelta: decimal.NewFromInt(rd.RewardPoints),
		Balance:        remaining,
	})
	return remaining, nil
}

// Update corrects shipping or advances status. Balances are never touched
func (s *RedemptionService) Update(ctx context.Context, redemptionID uuid.UUID, upd repository.RedemptionUpdate) (models.Redemption, error) {
	if upd.Shipping != nil {
		if err := validate.Model(*upd.Shipping); err != nil {
			return models.Redemption{}, s.hooks.Fail(opUpdate, err)
		}
	}
	if upd.Status != nil && !upd.Status.IsValid() {
		return models.Redemption{}, s.hooks.Fail(opUpdate, apperrors.Invalid("unknown redemption status %q", *upd.Status))
	}

	var (
		updated models.Redemption
		balance decimal.Decimal
	)
	err := s.storage.InTx(ctx, func(storage repository.Storage) error {
		current, err := storage.Redemption().GetRedemption(ctx, redemptionID, true)
		if err != nil {
			return err
		}

		if upd.Status != nil && !current.Status.CanAdvanceTo(*upd.Status) {
			return fmt.Errorf("%w: redemption status can't go back from %s to %s",
				apperrors.ErrInvalidState, current.Status, *upd.Status)
		}

		updated, err = storage.Redemption().UpdateRedemption(ctx, redemptionID, upd)
		if err != nil {
			return err
		}

		account, err := storage.Account().GetAccount(ctx, updated.AccountID, false)
		balance = account.SpendableBalance
		return err
	})
	if err != nil {
		return models.Redemption{}, s.hooks.Fail(opUpdate, err, "redemption_id", redemptionID)
	}

	s.hooks.AfterCommit(ctx, opUpdate, events.Event{
		Type:           events.RedemptionUpdated,
		AccountID:      updated.AccountID,
		SubjectID:      updated.ID,
		SpendableDelta: decimal.Zero,
		Balance:        balance,
	})
	return updated, nil
}

// With non-zero ownerID redemptions of other accounts are reported as not found
func (s *RedemptionService) Get(ctx context.Context, redemptionID uuid.UUID, ownerID uuid.UUID) (models.Redemption, error) {
	rd, err := s.storage.Redemption().GetRedemption(ctx, redemptionID, false)
	if err == nil && ownerID != uuid.Nil && rd.AccountID != ownerID {
		err = apperrors.ErrRedemptionNotFound
	}
	if err != nil {
		return models.Redemption{}, s.hooks.Fail("redemption.get", err, "redemption_id", redemptionID)
	}

	return rd, nil
}

func (s *RedemptionService) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Redemption, error) {
	list, err := s.storage.Redemption().ListRedemptions(ctx, accountID)
	if err != nil {
		return nil, s.hooks.Fail("redemption.list", err, "account_id", accountID)
	}

	return list, nil
}
