// Package settlement applies balance-changing business operations to the ledger.
// Every operation is keyed, runs under the affected accounts' locks in a single
// transaction, and replays its recorded result when the key is seen again.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	_ "time/tzdata"

	"taskona-ledger-go/internal/clock"
	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"
)

const (
	OpActivateAccount   = "activate_account"
	OpPayReferralBonus  = "pay_referral_bonus"
	OpPayTaskReward     = "pay_task_reward"
	OpClaimStreak       = "claim_streak"
	OpRequestWithdrawal = "request_withdrawal"
	OpApproveWithdrawal = "approve_withdrawal"
	OpRejectWithdrawal  = "reject_withdrawal"
	OpMarkProcessing    = "mark_withdrawal_processing"
	OpTopUp             = "top_up"
)

const (
	dateLayout            = "2006-01-02"
	defaultLedgerTimeZone = "Africa/Lagos"
)

// Result is what a settlement returns and what a replay of its key returns again.
type Result struct {
	Operation      string      `json:"operation"`
	IdempotencyKey string      `json:"idempotency_key"`
	AccountId      string      `json:"account_id"`
	Amount         money.Money `json:"amount"`
	Balance        money.Money `json:"balance"`
	TotalEarned    money.Money `json:"total_earned"`
	EntryIds       []string    `json:"entry_ids,omitempty"`
	WithdrawalId   string      `json:"withdrawal_id,omitempty"`
	StreakDay      int         `json:"streak_day,omitempty"`
	CurrentStreak  int         `json:"current_streak,omitempty"`
	Replayed       bool        `json:"replayed"`
	CompletedAt    time.Time   `json:"completed_at"`
}

type Engine struct {
	store    store.LedgerStore
	policy   models.LedgerPolicy
	rewards  map[int]models.StreakReward
	clock    clock.Clock
	location *time.Location
	metrics  *Metrics
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func NewEngine(st store.LedgerStore, policy models.LedgerPolicy, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	tz := policy.Timezone
	if tz == "" {
		tz = defaultLedgerTimeZone
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger time zone %q: %w", tz, err)
	}

	rewards := make(map[int]models.StreakReward, len(policy.StreakRewards))
	for _, reward := range policy.StreakRewards {
		rewards[reward.Day] = reward
	}

	e := &Engine{
		store:    st,
		policy:   policy,
		rewards:  rewards,
		clock:    clock.RealClock{},
		location: location,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Policy returns the business constants the engine was built with.
func (e *Engine) Policy() models.LedgerPolicy {
	return e.policy
}

func validatePolicy(p models.LedgerPolicy) error {
	switch {
	case p.WelcomeBonus.IsNegative():
		return fmt.Errorf("welcome bonus cannot be negative")
	case p.ReferralBonus.IsNegative():
		return fmt.Errorf("referral bonus cannot be negative")
	case p.ActivationFee.IsNegative():
		return fmt.Errorf("activation fee cannot be negative")
	case p.WithdrawalFee.IsNegative():
		return fmt.Errorf("withdrawal fee cannot be negative")
	case !p.WithdrawalMin.IsPositive():
		return fmt.Errorf("withdrawal minimum must be positive")
	case p.WithdrawalMax.Cmp(p.WithdrawalMin) < 0:
		return fmt.Errorf("withdrawal maximum %s is below minimum %s", p.WithdrawalMax, p.WithdrawalMin)
	}
	return ValidateStreakRewards(p.StreakRewards)
}

// ValidateStreakRewards requires days 1..n with no gaps and non-negative amounts.
func ValidateStreakRewards(rewards []models.StreakReward) error {
	if len(rewards) == 0 {
		return fmt.Errorf("streak reward table is empty")
	}
	days := make([]int, 0, len(rewards))
	for _, r := range rewards {
		if r.BaseAmount.IsNegative() || r.BonusAmount.IsNegative() {
			return fmt.Errorf("streak reward for day %d has a negative amount", r.Day)
		}
		days = append(days, r.Day)
	}
	sort.Ints(days)
	for i, day := range days {
		if day != i+1 {
			return fmt.Errorf("streak reward table must cover days 1..%d without gaps, found day %d at position %d", len(days), day, i+1)
		}
	}
	return nil
}

func (e *Engine) now() time.Time {
	return e.clock.Now().UTC()
}

// today is the current calendar day in the ledger time zone.
func (e *Engine) today() (string, string) {
	local := e.clock.Now().In(e.location)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.location)
	return midnight.Format(dateLayout), midnight.AddDate(0, 0, -1).Format(dateLayout)
}

func accountNotFound(userId string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrAccountNotFound, userId)
	}
	return err
}

// lockedAccount loads an account inside a settlement, optionally requiring activation.
func (e *Engine) lockedAccount(ctx context.Context, tx store.Tx, userId string, requireActive bool) (*models.Account, error) {
	account, err := tx.Account(ctx, userId)
	if err != nil {
		return nil, accountNotFound(userId, err)
	}
	if requireActive && e.policy.RequireActivation && !account.IsActivated {
		return nil, fmt.Errorf("%w: %s", ErrNotActivated, userId)
	}
	return account, nil
}

// credit adds amount to the account, tracking earnings for earning kinds.
func credit(account *models.Account, kind models.EntryKind, amount money.Money) error {
	balance, err := account.Balance.CheckedAdd(amount)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvariantViolation, err)
	}
	account.Balance = balance
	if kind.Earning() {
		earned, err := account.TotalEarned.CheckedAdd(amount)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvariantViolation, err)
		}
		account.TotalEarned = earned
	}
	return nil
}
