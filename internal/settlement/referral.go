package settlement

import (
	"context"
	"errors"
	"fmt"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"
)

func referralKey(referrerId, referredId string) string {
	return fmt.Sprintf("referral:%s:%s", referrerId, referredId)
}

// PayReferralBonus credits the referrer once the referred account is activated.
// Both accounts are locked in id order.
func (e *Engine) PayReferralBonus(ctx context.Context, referrerId, referredId string) (*Result, error) {
	if referrerId == "" || referredId == "" {
		return nil, fmt.Errorf("%w: referrer and referred ids", ErrMissingReference)
	}
	if referrerId == referredId {
		return nil, ErrSelfReferral
	}

	return e.execute(ctx, settlement{
		op:        OpPayReferralBonus,
		key:       referralKey(referrerId, referredId),
		accountId: referrerId,
		lockIds:   []string{referrerId, referredId},
		already:   ErrAlreadyPaid,
		apply: func(ctx context.Context, tx store.Tx, res *Result) error {
			return e.applyReferralBonus(ctx, tx, referrerId, referredId, res)
		},
	})
}

func (e *Engine) applyReferralBonus(ctx context.Context, tx store.Tx, referrerId, referredId string, res *Result) error {
	edge, err := tx.ReferralEdge(ctx, referrerId, referredId)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s -> %s", ErrNoSuchReferral, referrerId, referredId)
	}
	if err != nil {
		return err
	}
	if edge.BonusPaid.IsPositive() {
		return fmt.Errorf("%w: %s -> %s", ErrAlreadyPaid, referrerId, referredId)
	}

	referred, err := e.lockedAccount(ctx, tx, referredId, false)
	if err != nil {
		return err
	}
	if !referred.IsActivated {
		return fmt.Errorf("%w: %s", ErrReferredNotActivated, referredId)
	}

	referrer, err := e.lockedAccount(ctx, tx, referrerId, false)
	if err != nil {
		return err
	}

	bonus := e.policy.ReferralBonus
	if !bonus.IsPositive() {
		return fmt.Errorf("%w: referral bonus is not configured", ErrInvalidAmount)
	}
	if err := credit(referrer, models.KindReferralBonus, bonus); err != nil {
		return err
	}

	now := e.now()
	entry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
		AccountId:      referrerId,
		Kind:           models.KindReferralBonus,
		Amount:         bonus,
		BalanceAfter:   referrer.Balance,
		Status:         models.EntryCompleted,
		IdempotencyKey: referralKey(referrerId, referredId),
		Description:    fmt.Sprintf("Referral bonus for %s", referredId),
		CreatedAt:      now,
	})
	if err != nil {
		return err
	}
	if err := tx.MarkReferralPaid(ctx, referrerId, referredId, bonus, now); err != nil {
		return err
	}
	if err := tx.UpdateAccount(ctx, referrerId, referrer.Balance, referrer.TotalEarned); err != nil {
		return err
	}

	res.Amount = bonus
	res.Balance = referrer.Balance
	res.TotalEarned = referrer.TotalEarned
	res.EntryIds = []string{entry.Id}
	return nil
}
