package settlement

import (
	"errors"

	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"
)

// Kind classifies failures so callers can tell benign repeats from actionable
// or transient ones.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindPrecondition Kind = "precondition"
	KindRetryable    Kind = "retryable"
	KindInvariant    Kind = "invariant"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInternal     Kind = "internal"
)

// Error is a settlement failure with a stable code.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

var (
	ErrInvalidAmount       = newError(KindValidation, "invalid_amount", "amount must be greater than zero")
	ErrMissingBankDetails  = newError(KindValidation, "missing_bank_details", "bank name, account number and account name are required")
	ErrMissingReference    = newError(KindValidation, "missing_reference", "a reference is required")
	ErrBelowMinimum        = newError(KindValidation, "below_minimum", "amount is below the withdrawal minimum")
	ErrAboveMaximum        = newError(KindValidation, "above_maximum", "amount is above the withdrawal maximum")
	ErrSelfReferral        = newError(KindValidation, "self_referral", "users cannot refer themselves")
	ErrInvalidReferralCode = newError(KindValidation, "invalid_referral_code", "referral code does not match any account")

	ErrAlreadyActivated     = newError(KindPrecondition, "already_activated", "account is already activated")
	ErrAlreadyPaid          = newError(KindPrecondition, "already_paid", "referral bonus was already paid")
	ErrReferredNotActivated = newError(KindPrecondition, "referred_not_activated", "referred account is not activated")
	ErrAlreadyRewarded      = newError(KindPrecondition, "already_rewarded", "task reward was already paid")
	ErrAlreadyClaimedToday  = newError(KindPrecondition, "already_claimed_today", "streak reward was already claimed today")
	ErrInsufficientBalance  = newError(KindPrecondition, "insufficient_balance", "balance does not cover amount plus fee")
	ErrNotPending           = newError(KindPrecondition, "not_pending", "withdrawal request is not pending")
	ErrNotActivated         = newError(KindPrecondition, "not_activated", "account is not activated")

	ErrNoSuchReferral     = newError(KindNotFound, "no_such_referral", "referral does not exist")
	ErrAccountNotFound    = newError(KindNotFound, "account_not_found", "account not found")
	ErrWithdrawalNotFound = newError(KindNotFound, "withdrawal_not_found", "withdrawal request not found")

	ErrAccountExists       = newError(KindConflict, "account_exists", "account already exists")
	ErrIdempotencyConflict = newError(KindConflict, "idempotency_conflict", "idempotency key was used for a different request")

	ErrRetryLater = newError(KindRetryable, "retry_later", "a previous attempt with this key is still in flight")

	ErrNoStreakReward  = newError(KindInvariant, "no_streak_reward", "no streak reward is configured for this day")
	ErrBalanceMismatch = newError(KindInvariant, "balance_mismatch", "stored balance does not match ledger entries")
)

// KindOf maps any error returned by the engine to its Kind.
func KindOf(err error) Kind {
	var settlementErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &settlementErr):
		return settlementErr.Kind
	case errors.Is(err, store.ErrStorageUnavailable), errors.Is(err, store.ErrConcurrentModification):
		return KindRetryable
	case errors.Is(err, store.ErrConstraintViolation), errors.Is(err, store.ErrDuplicate):
		return KindConflict
	case errors.Is(err, store.ErrInvariantViolation):
		return KindInvariant
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, money.ErrInvalidAmount), errors.Is(err, money.ErrZeroOrNegative):
		return KindValidation
	}
	return KindInternal
}

// CodeOf maps any error returned by the engine to a stable code string.
func CodeOf(err error) string {
	var settlementErr *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &settlementErr):
		return settlementErr.Code
	case errors.Is(err, store.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, store.ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, store.ErrConstraintViolation), errors.Is(err, store.ErrDuplicate):
		return "constraint_violation"
	case errors.Is(err, store.ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, money.ErrInvalidAmount), errors.Is(err, money.ErrZeroOrNegative):
		return "invalid_amount"
	}
	return "internal"
}
