package models

import (
	"time"

	"taskona-ledger-go/internal/money"
)

// EntryKind is the business reason for a ledger entry.
type EntryKind string

const (
	KindActivationFee     EntryKind = "activation_fee"
	KindWelcomeBonus      EntryKind = "welcome_bonus"
	KindReferralBonus     EntryKind = "referral_bonus"
	KindTaskReward        EntryKind = "task_reward"
	KindStreakClaim       EntryKind = "streak_claim"
	KindWithdrawalRequest EntryKind = "withdrawal_request"
	KindWithdrawalRefund  EntryKind = "withdrawal_refund"
	KindTopUp             EntryKind = "top_up"
)

// Earning reports whether credits of this kind count towards an account's total earned.
func (k EntryKind) Earning() bool {
	switch k {
	case KindWelcomeBonus, KindReferralBonus, KindTaskReward, KindStreakClaim:
		return true
	}
	return false
}

// EntryStatus moves only pending -> completed | failed.
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
)

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
)

// Open reports whether an admin may still approve or reject the request.
func (s WithdrawalStatus) Open() bool {
	return s == WithdrawalPending || s == WithdrawalProcessing
}

// KeyStatus is the idempotency key state persisted after the key is first seen.
type KeyStatus string

const (
	KeyPending   KeyStatus = "pending"
	KeyCompleted KeyStatus = "completed"
	KeyFailed    KeyStatus = "failed"
)

// Account represents a user's ledger account (current state)
type Account struct {
	UserId         string      `db:"user_id"`
	Email          string      `db:"email"`
	FullName       string      `db:"full_name"`
	ReferralCode   string      `db:"referral_code"`
	Balance        money.Money `db:"balance"`
	TotalEarned    money.Money `db:"total_earned"`
	IsActivated    bool        `db:"is_activated"`
	ActivationDate *time.Time  `db:"activation_date"`
	ActivationRef  string      `db:"activation_ref"`
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
}

// LedgerEntry is one immutable credit or debit against an account
type LedgerEntry struct {
	Id             string      `db:"id"`
	AccountId      string      `db:"account_id"`
	Kind           EntryKind   `db:"kind"`
	Amount         money.Money `db:"amount"`
	BalanceAfter   money.Money `db:"balance_after"`
	Status         EntryStatus `db:"status"`
	IdempotencyKey string      `db:"idempotency_key"`
	RelatedEntryId string      `db:"related_entry_id"`
	Description    string      `db:"description"`
	CreatedAt      time.Time   `db:"created_at"`
}

// ReferralEdge links a referring user to a user who signed up with their code
type ReferralEdge struct {
	ReferrerId string      `db:"referrer_id"`
	ReferredId string      `db:"referred_id"`
	BonusPaid  money.Money `db:"bonus_paid"`
	CreatedAt  time.Time   `db:"created_at"`
	PaidAt     *time.Time  `db:"paid_at"`
}

// StreakState is a user's daily claim state. LastClaimDate is YYYY-MM-DD in the ledger time zone.
type StreakState struct {
	UserId        string      `db:"user_id"`
	CurrentStreak int         `db:"current_streak"`
	LongestStreak int         `db:"longest_streak"`
	LastClaimDate string      `db:"last_claim_date"`
	TotalClaimed  money.Money `db:"total_claimed"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

type BankDetails struct {
	BankName      string `db:"bank_name" json:"bank_name"`
	AccountNumber string `db:"account_number" json:"account_number"`
	AccountName   string `db:"account_name" json:"account_name"`
}

// WithdrawalRequest holds funds reserved from an account until an admin settles it
type WithdrawalRequest struct {
	Id        string           `db:"id"`
	UserId    string           `db:"user_id"`
	Amount    money.Money      `db:"amount"`
	Fee       money.Money      `db:"fee"`
	Bank      BankDetails      `db:"-"`
	Status    WithdrawalStatus `db:"status"`
	Reference string           `db:"reference"`
	EntryId   string           `db:"entry_id"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
}

// Total is the amount reserved from the balance.
func (w *WithdrawalRequest) Total() money.Money {
	return w.Amount.Add(w.Fee)
}

// IdempotencyRecord tracks one externally keyed settlement
type IdempotencyRecord struct {
	Key         string    `db:"key"`
	Operation   string    `db:"operation"`
	Fingerprint string    `db:"fingerprint"`
	AccountId   string    `db:"account_id"`
	Status      KeyStatus `db:"status"`
	Result      []byte    `db:"result"`
	ErrorCode   string    `db:"error_code"`
	Attempts    int       `db:"attempts"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}
