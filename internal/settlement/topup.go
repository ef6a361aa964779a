package settlement

import (
	"context"
	"fmt"
	"strconv"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"
)

// TopUp credits a payment the provider has already confirmed. providerRef is
// the provider's transaction reference and doubles as the idempotency key.
func (e *Engine) TopUp(ctx context.Context, userId string, amount money.Money, providerRef string) (*Result, error) {
	if userId == "" || providerRef == "" {
		return nil, fmt.Errorf("%w: user id and provider reference", ErrMissingReference)
	}
	if err := money.RequirePositive(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	return e.execute(ctx, settlement{
		op:          OpTopUp,
		key:         providerRef,
		fingerprint: fingerprint(userId, strconv.FormatInt(amount.Kobo(), 10)),
		accountId:   userId,
		lockIds:     []string{userId},
		apply: func(ctx context.Context, tx store.Tx, res *Result) error {
			account, err := e.lockedAccount(ctx, tx, userId, false)
			if err != nil {
				return err
			}
			if err := credit(account, models.KindTopUp, amount); err != nil {
				return err
			}
			entry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
				AccountId:      userId,
				Kind:           models.KindTopUp,
				Amount:         amount,
				BalanceAfter:   account.Balance,
				Status:         models.EntryCompleted,
				IdempotencyKey: providerRef,
				Description:    fmt.Sprintf("Wallet top-up %s", providerRef),
				CreatedAt:      e.now(),
			})
			if err != nil {
				return err
			}
			if err := tx.UpdateAccount(ctx, userId, account.Balance, account.TotalEarned); err != nil {
				return err
			}

			res.Amount = amount
			res.Balance = account.Balance
			res.TotalEarned = account.TotalEarned
			res.EntryIds = []string{entry.Id}
			return nil
		},
	})
}
