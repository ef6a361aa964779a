package settlement

import (
	"context"
	"fmt"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"
)

// StreakView is a user's streak state together with what the next claim pays.
type StreakView struct {
	State        models.StreakState  `json:"state"`
	ClaimedToday bool                `json:"claimed_today"`
	NextStreak   int                 `json:"next_streak"`
	NextReward   models.StreakReward `json:"next_reward"`
	Today        string              `json:"today"`
}

func streakKey(userId, day string) string {
	return fmt.Sprintf("streak:%s:%s", userId, day)
}

// nextStreak continues the streak when the last claim was yesterday and
// restarts it at 1 otherwise.
func nextStreak(state models.StreakState, yesterday string) int {
	if state.LastClaimDate == yesterday && state.CurrentStreak > 0 {
		return state.CurrentStreak + 1
	}
	return 1
}

// rewardFor maps a streak length onto the reward table, cycling after its last day.
func (e *Engine) rewardFor(streak int) (models.StreakReward, int, error) {
	day := (streak-1)%len(e.rewards) + 1
	reward, ok := e.rewards[day]
	if !ok {
		return models.StreakReward{}, day, fmt.Errorf("%w: day %d", ErrNoStreakReward, day)
	}
	return reward, day, nil
}

// ClaimStreak pays today's streak reward. Calendar days are taken in the
// ledger time zone.
func (e *Engine) ClaimStreak(ctx context.Context, userId string) (*Result, error) {
	if userId == "" {
		return nil, fmt.Errorf("%w: user id", ErrMissingReference)
	}
	today, yesterday := e.today()
	key := streakKey(userId, today)

	return e.execute(ctx, settlement{
		op:        OpClaimStreak,
		key:       key,
		accountId: userId,
		lockIds:   []string{userId},
		already:   ErrAlreadyClaimedToday,
		apply: func(ctx context.Context, tx store.Tx, res *Result) error {
			account, err := e.lockedAccount(ctx, tx, userId, true)
			if err != nil {
				return err
			}
			state, err := tx.Streak(ctx, userId)
			if err != nil {
				return err
			}
			if state.LastClaimDate >= today {
				return fmt.Errorf("%w: last claim %s", ErrAlreadyClaimedToday, state.LastClaimDate)
			}

			streak := nextStreak(*state, yesterday)
			reward, day, err := e.rewardFor(streak)
			if err != nil {
				return err
			}
			amount := reward.Total()
			if err := credit(account, models.KindStreakClaim, amount); err != nil {
				return err
			}

			now := e.now()
			entry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
				AccountId:      userId,
				Kind:           models.KindStreakClaim,
				Amount:         amount,
				BalanceAfter:   account.Balance,
				Status:         models.EntryCompleted,
				IdempotencyKey: key,
				Description:    streakDescription(reward, day),
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}

			state.UserId = userId
			state.CurrentStreak = streak
			if streak > state.LongestStreak {
				state.LongestStreak = streak
			}
			state.LastClaimDate = today
			state.TotalClaimed = state.TotalClaimed.Add(amount)
			state.UpdatedAt = now
			if err := tx.SaveStreak(ctx, *state); err != nil {
				return err
			}
			if err := tx.UpdateAccount(ctx, userId, account.Balance, account.TotalEarned); err != nil {
				return err
			}

			res.Amount = amount
			res.Balance = account.Balance
			res.TotalEarned = account.TotalEarned
			res.EntryIds = []string{entry.Id}
			res.StreakDay = day
			res.CurrentStreak = streak
			return nil
		},
	})
}

func streakDescription(reward models.StreakReward, day int) string {
	if reward.Description != "" {
		return fmt.Sprintf("Day %d streak: %s", day, reward.Description)
	}
	return fmt.Sprintf("Day %d streak reward", day)
}

// Streak reports the user's streak and the reward the next claim would pay.
func (e *Engine) Streak(ctx context.Context, userId string) (*StreakView, error) {
	if _, err := e.store.GetAccount(ctx, userId); err != nil {
		return nil, accountNotFound(userId, err)
	}
	state, err := e.store.GetStreak(ctx, userId)
	if err != nil {
		return nil, err
	}
	today, yesterday := e.today()

	view := &StreakView{
		State:        *state,
		ClaimedToday: state.LastClaimDate >= today,
		Today:        today,
	}
	if state.LastClaimDate != today && state.LastClaimDate != yesterday {
		// The streak is already broken; show it as such.
		view.State.CurrentStreak = 0
	}

	view.NextStreak = nextStreak(*state, yesterday)
	if view.ClaimedToday {
		view.NextStreak = state.CurrentStreak + 1
	}
	reward, _, err := e.rewardFor(view.NextStreak)
	if err != nil {
		return nil, err
	}
	view.NextReward = reward
	return view, nil
}

