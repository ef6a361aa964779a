package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// WithAccountLock serializes fn against every other call touching any of accountIds
// and runs it inside one database transaction. The lock wait and the transaction
// share a single deadline; running out of time surfaces as store.ErrStorageUnavailable.
func (s *Service) WithAccountLock(ctx context.Context, accountIds []string, fn func(ctx context.Context, tx store.Tx) error) error {
	if len(normalizeIds(accountIds)) == 0 {
		return fmt.Errorf("at least one account id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	start := time.Now()
	release, err := s.locks.acquire(ctx, accountIds)
	if err != nil {
		zap.L().Warn("Timed out waiting for account lock",
			zap.Strings("account_ids", accountIds),
			zap.Duration("waited", time.Since(start)))
		return fmt.Errorf("%w: waiting for account lock: %v", store.ErrStorageUnavailable, err)
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback()

	if err := fn(ctx, &sqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}

// sqlTx implements store.Tx on top of one *sql.Tx.
type sqlTx struct {
	tx *sql.Tx
}

var _ store.Tx = (*sqlTx)(nil)

func (t *sqlTx) Account(ctx context.Context, userId string) (*models.Account, error) {
	return getAccount(ctx, t.tx, userId)
}

func (t *sqlTx) UpdateAccount(ctx context.Context, userId string, balance, totalEarned money.Money) error {
	if balance.IsNegative() {
		return fmt.Errorf("%w: balance of %s would become %s", store.ErrInvariantViolation, userId, balance)
	}

	result, err := t.tx.ExecContext(ctx, queryUpdateAccount, balance, totalEarned, time.Now().UTC(), userId, totalEarned)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", mapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := getAccount(ctx, t.tx, userId); err != nil {
			return err
		}
		return fmt.Errorf("%w: total earned of %s would decrease", store.ErrInvariantViolation, userId)
	}
	return nil
}

func (t *sqlTx) MarkActivated(ctx context.Context, userId, activationRef string, at time.Time) error {
	result, err := t.tx.ExecContext(ctx, queryMarkActivated, at, activationRef, at, userId)
	if err != nil {
		return fmt.Errorf("failed to mark account activated: %w", mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("account %s already activated: %w", userId, store.ErrConcurrentModification)
	}
	return nil
}

func (t *sqlTx) AppendEntry(ctx context.Context, params store.AppendEntryParams) (*models.LedgerEntry, error) {
	return appendEntry(ctx, t.tx, params)
}

func (t *sqlTx) Entry(ctx context.Context, entryId string) (*models.LedgerEntry, error) {
	entry, err := scanEntry(t.tx.QueryRowContext(ctx, queryGetEntry, entryId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s: %w", entryId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query entry: %w", mapError(err))
	}
	return entry, nil
}

func (t *sqlTx) UpdateEntryStatus(ctx context.Context, entryId string, from, to models.EntryStatus) error {
	if from != models.EntryPending {
		return fmt.Errorf("%w: entry status can only leave pending, not %s", store.ErrInvariantViolation, from)
	}
	result, err := t.tx.ExecContext(ctx, queryUpdateEntryStatus, to, entryId, from)
	if err != nil {
		return fmt.Errorf("failed to update entry status: %w", mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("entry %s is no longer %s: %w", entryId, from, store.ErrConcurrentModification)
	}
	return nil
}

func (t *sqlTx) ReferralEdge(ctx context.Context, referrerId, referredId string) (*models.ReferralEdge, error) {
	return getReferralEdge(ctx, t.tx, referrerId, referredId)
}

func (t *sqlTx) MarkReferralPaid(ctx context.Context, referrerId, referredId string, bonus money.Money, at time.Time) error {
	if !bonus.IsPositive() {
		return fmt.Errorf("%w: referral bonus must be positive, got %s", store.ErrInvariantViolation, bonus)
	}
	result, err := t.tx.ExecContext(ctx, queryMarkReferralPaid, bonus, at, referrerId, referredId)
	if err != nil {
		return fmt.Errorf("failed to mark referral paid: %w", mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("referral %s -> %s already paid: %w", referrerId, referredId, store.ErrConcurrentModification)
	}
	return nil
}

func (t *sqlTx) Streak(ctx context.Context, userId string) (*models.StreakState, error) {
	return getStreak(ctx, t.tx, userId)
}

func (t *sqlTx) SaveStreak(ctx context.Context, state models.StreakState) error {
	if state.CurrentStreak < 0 || state.LongestStreak < state.CurrentStreak {
		return fmt.Errorf("%w: streak %d/%d for %s", store.ErrInvariantViolation, state.CurrentStreak, state.LongestStreak, state.UserId)
	}
	_, err := t.tx.ExecContext(ctx, queryUpsertStreak,
		state.UserId, state.CurrentStreak, state.LongestStreak, state.LastClaimDate, state.TotalClaimed, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", mapError(err))
	}
	return nil
}

func (t *sqlTx) CreateWithdrawal(ctx context.Context, params store.CreateWithdrawalParams) (*models.WithdrawalRequest, error) {
	request, err := scanWithdrawal(t.tx.QueryRowContext(ctx, queryInsertWithdrawal,
		params.Id, params.UserId, params.Amount, params.Fee,
		params.Bank.BankName, params.Bank.AccountNumber, params.Bank.AccountName,
		params.Reference, params.EntryId, params.CreatedAt, params.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert withdrawal request: %w", mapError(err))
	}
	return request, nil
}

func (t *sqlTx) Withdrawal(ctx context.Context, requestId string) (*models.WithdrawalRequest, error) {
	return getWithdrawal(ctx, t.tx, requestId)
}

func (t *sqlTx) UpdateWithdrawalStatus(ctx context.Context, requestId string, from []models.WithdrawalStatus, to models.WithdrawalStatus, at time.Time) error {
	return updateWithdrawalStatus(ctx, t.tx, requestId, from, to, at)
}

func (t *sqlTx) CompleteIdempotencyKey(ctx context.Context, key string, result []byte, at time.Time) error {
	res, err := t.tx.ExecContext(ctx, queryCompleteIdempotencyKey, result, at, key)
	if err != nil {
		return fmt.Errorf("failed to complete idempotency key: %w", mapError(err))
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("idempotency key %s is no longer pending: %w", key, store.ErrConstraintViolation)
	}
	return nil
}
