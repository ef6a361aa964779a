package store

import (
	"context"
	"errors"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrNotFound               = errors.New("not found")
	ErrConstraintViolation    = errors.New("constraint violation")
	ErrStorageUnavailable     = errors.New("storage unavailable")
	ErrInvariantViolation     = errors.New("ledger invariant violation")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicate              = errors.New("duplicate record")
)

// CreateAccountParams contains the parameters for registering an account.
type CreateAccountParams struct {
	UserId       string
	Email        string
	FullName     string
	ReferralCode string
}

// AppendEntryParams describes one ledger entry written by a settlement.
type AppendEntryParams struct {
	AccountId      string
	Kind           models.EntryKind
	Amount         money.Money
	BalanceAfter   money.Money
	Status         models.EntryStatus
	IdempotencyKey string
	RelatedEntryId string
	Description    string
	CreatedAt      time.Time
}

// CreateWithdrawalParams describes a reserved withdrawal.
type CreateWithdrawalParams struct {
	Id        string
	UserId    string
	Amount    money.Money
	Fee       money.Money
	Bank      models.BankDetails
	Reference string
	EntryId   string
	CreatedAt time.Time
}

// ClaimKeyParams identifies the settlement a caller is about to run.
type ClaimKeyParams struct {
	Key         string
	Operation   string
	Fingerprint string
	AccountId   string
	Now         time.Time
}

// ClaimOutcome reports what ClaimIdempotencyKey found.
type ClaimOutcome struct {
	// Claimed is true when the caller now owns the key and must run the effect.
	Claimed bool
	Record  models.IdempotencyRecord
}

// WithdrawalFilter narrows ListWithdrawals. Zero values match everything.
type WithdrawalFilter struct {
	UserId string
	Status models.WithdrawalStatus
	Limit  int
	Offset int
}

// Reconciliation compares an account's stored balance against its entries.
type Reconciliation struct {
	AccountId     string
	StoredBalance money.Money
	EntrySum      money.Money
}

func (r Reconciliation) Balanced() bool {
	return r.StoredBalance == r.EntrySum
}

// Tx is the set of writes available inside WithAccountLock. All of them commit together.
type Tx interface {
	Account(ctx context.Context, userId string) (*models.Account, error)
	UpdateAccount(ctx context.Context, userId string, balance, totalEarned money.Money) error
	MarkActivated(ctx context.Context, userId, activationRef string, at time.Time) error
	AppendEntry(ctx context.Context, params AppendEntryParams) (*models.LedgerEntry, error)
	Entry(ctx context.Context, entryId string) (*models.LedgerEntry, error)
	UpdateEntryStatus(ctx context.Context, entryId string, from, to models.EntryStatus) error

	ReferralEdge(ctx context.Context, referrerId, referredId string) (*models.ReferralEdge, error)
	MarkReferralPaid(ctx context.Context, referrerId, referredId string, bonus money.Money, at time.Time) error

	Streak(ctx context.Context, userId string) (*models.StreakState, error)
	SaveStreak(ctx context.Context, state models.StreakState) error

	CreateWithdrawal(ctx context.Context, params CreateWithdrawalParams) (*models.WithdrawalRequest, error)
	Withdrawal(ctx context.Context, requestId string) (*models.WithdrawalRequest, error)
	UpdateWithdrawalStatus(ctx context.Context, requestId string, from []models.WithdrawalStatus, to models.WithdrawalStatus, at time.Time) error

	CompleteIdempotencyKey(ctx context.Context, key string, result []byte, at time.Time) error
}

// LedgerStore defines the contract that the settlement engine depends on.
type LedgerStore interface {
	// --- Transactions ---
	WithAccountLock(ctx context.Context, accountIds []string, fn func(ctx context.Context, tx Tx) error) error

	// --- Accounts ---
	CreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, error)
	GetAccount(ctx context.Context, userId string) (*models.Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)
	ListAccountIds(ctx context.Context) ([]string, error)

	// --- Entries ---
	FindEntryByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error)
	ReconcileAccount(ctx context.Context, userId string) (Reconciliation, error)

	// --- Referral graph ---
	CreateReferralEdge(ctx context.Context, referrerId, referredId string, at time.Time) (*models.ReferralEdge, error)
	ListReferrals(ctx context.Context, referrerId string) ([]models.ReferralEdge, error)
	GetReferrer(ctx context.Context, referredId string) (*models.ReferralEdge, error)

	// --- Streaks ---
	GetStreak(ctx context.Context, userId string) (*models.StreakState, error)

	// --- Withdrawals ---
	GetWithdrawal(ctx context.Context, requestId string) (*models.WithdrawalRequest, error)
	ListWithdrawals(ctx context.Context, filter WithdrawalFilter) ([]models.WithdrawalRequest, error)

	// --- Idempotency keys ---
	ClaimIdempotencyKey(ctx context.Context, params ClaimKeyParams) (ClaimOutcome, error)
	FailIdempotencyKey(ctx context.Context, key, errorCode string, at time.Time) error
	GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	ListStalePendingKeys(ctx context.Context, olderThan time.Time, limit int) ([]models.IdempotencyRecord, error)
	ResolveIdempotencyKey(ctx context.Context, key string, status models.KeyStatus, errorCode string, at time.Time) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
