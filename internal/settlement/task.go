package settlement

import (
	"context"
	"fmt"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"
)

func taskKey(userId, taskId string) string {
	return fmt.Sprintf("task:%s:%s", userId, taskId)
}

// PayTaskReward credits amount for a completed task, once per user and task.
func (e *Engine) PayTaskReward(ctx context.Context, userId, taskId string, amount money.Money) (*Result, error) {
	if userId == "" || taskId == "" {
		return nil, fmt.Errorf("%w: user id and task id", ErrMissingReference)
	}
	if err := money.RequirePositive(amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	key := taskKey(userId, taskId)
	return e.execute(ctx, settlement{
		op:        OpPayTaskReward,
		key:       key,
		accountId: userId,
		lockIds:   []string{userId},
		already:   ErrAlreadyRewarded,
		apply: func(ctx context.Context, tx store.Tx, res *Result) error {
			account, err := e.lockedAccount(ctx, tx, userId, true)
			if err != nil {
				return err
			}
			if err := credit(account, models.KindTaskReward, amount); err != nil {
				return err
			}
			entry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
				AccountId:      userId,
				Kind:           models.KindTaskReward,
				Amount:         amount,
				BalanceAfter:   account.Balance,
				Status:         models.EntryCompleted,
				IdempotencyKey: key,
				Description:    fmt.Sprintf("Reward for task %s", taskId),
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
