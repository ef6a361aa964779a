package settlement

import (
	"context"
	"errors"
	"fmt"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ActivateAccount records the activation fee paid under feeRef, credits the
// welcome bonus and flips the account to activated. A second activation, under
// any reference, returns the original result with ErrAlreadyActivated.
func (e *Engine) ActivateAccount(ctx context.Context, userId, feeRef string) (*Result, error) {
	if userId == "" || feeRef == "" {
		return nil, fmt.Errorf("%w: user id and fee reference", ErrMissingReference)
	}

	res, err := e.execute(ctx, settlement{
		op:          OpActivateAccount,
		key:         feeRef,
		fingerprint: fingerprint(userId),
		accountId:   userId,
		lockIds:     []string{userId},
		already:     ErrAlreadyActivated,
		apply: func(ctx context.Context, tx store.Tx, res *Result) error {
			return e.applyActivation(ctx, tx, userId, feeRef, res)
		},
	})
	if errors.Is(err, ErrAlreadyActivated) && res == nil {
		return e.priorActivation(ctx, userId, err)
	}
	if err != nil || res.Replayed {
		return res, err
	}

	if e.policy.AutoPayReferral {
		e.payReferrerOf(ctx, userId)
	}
	return res, nil
}

func (e *Engine) applyActivation(ctx context.Context, tx store.Tx, userId, feeRef string, res *Result) error {
	account, err := e.lockedAccount(ctx, tx, userId, false)
	if err != nil {
		return err
	}
	if account.IsActivated {
		return fmt.Errorf("%w: %s via %s", ErrAlreadyActivated, userId, account.ActivationRef)
	}
	now := e.now()

	fee := e.policy.ActivationFee
	feeAmount := fee.Neg()
	feeDescription := fmt.Sprintf("Activation fee of NGN %s", fee)
	if !e.policy.ActivationFeeDebit {
		// Paid to the payment provider; recorded as a zero-amount memo.
		feeAmount = 0
		feeDescription = fmt.Sprintf("Activation fee of NGN %s paid externally", fee)
	} else if account.Balance.Cmp(fee) < 0 {
		return fmt.Errorf("%w: activation fee %s, balance %s", ErrInsufficientBalance, fee, account.Balance)
	}
	account.Balance = account.Balance.Add(feeAmount)

	feeEntry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
		AccountId:      userId,
		Kind:           models.KindActivationFee,
		Amount:         feeAmount,
		BalanceAfter:   account.Balance,
		Status:         models.EntryCompleted,
		IdempotencyKey: feeRef,
		Description:    feeDescription,
		CreatedAt:      now,
	})
	if err != nil {
		return err
	}
	res.EntryIds = append(res.EntryIds, feeEntry.Id)

	if bonus := e.policy.WelcomeBonus; bonus.IsPositive() {
		if err := credit(account, models.KindWelcomeBonus, bonus); err != nil {
			return err
		}
		bonusEntry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
			AccountId:      userId,
			Kind:           models.KindWelcomeBonus,
			Amount:         bonus,
			BalanceAfter:   account.Balance,
			Status:         models.EntryCompleted,
			IdempotencyKey: feeRef + ":welcome_bonus",
			RelatedEntryId: feeEntry.Id,
			Description:    "Welcome bonus",
			CreatedAt:      now,
		})
		if err != nil {
			return err
		}
		res.EntryIds = append(res.EntryIds, bonusEntry.Id)
		res.Amount = bonus
	}

	if err := tx.MarkActivated(ctx, userId, feeRef, now); err != nil {
		return err
	}
	if err := tx.UpdateAccount(ctx, userId, account.Balance, account.TotalEarned); err != nil {
		return err
	}

	res.Balance = account.Balance
	res.TotalEarned = account.TotalEarned
	return nil
}

// priorActivation answers a second activation with the result of the first.
func (e *Engine) priorActivation(ctx context.Context, userId string, cause error) (*Result, error) {
	account, err := e.store.GetAccount(ctx, userId)
	if err != nil || account.ActivationRef == "" {
		return nil, cause
	}
	prior, err := e.priorResult(ctx, account.ActivationRef)
	if err != nil {
		zap.L().Warn("Unable to load prior activation result",
			zap.String("user_id", userId),
			zap.String("activation_ref", account.ActivationRef),
			zap.Error(err))
		return nil, cause
	}
	return prior, cause
}

// payReferrerOf pays the referral bonus owed for a newly activated user, if any.
// Failures are logged; the payout can be retried by an admin under the same key.
func (e *Engine) payReferrerOf(ctx context.Context, referredId string) {
	edge, err := e.store.GetReferrer(ctx, referredId)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		zap.L().Warn("Unable to look up referrer", zap.String("referred_id", referredId), zap.Error(err))
		return
	}
	if _, err := e.PayReferralBonus(ctx, edge.ReferrerId, referredId); err != nil && !errors.Is(err, ErrAlreadyPaid) {
		zap.L().Warn("Automatic referral payout failed",
			zap.String("referrer_id", edge.ReferrerId),
			zap.String("referred_id", referredId),
			zap.String("code", CodeOf(err)),
			zap.Error(err))
	}
}
