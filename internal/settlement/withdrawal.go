package settlement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"

	"github.com/google/uuid"
)

// WithdrawalParams is a user's request to cash out to a bank account.
// IdempotencyKey is generated when empty, which makes the request non-retryable.
type WithdrawalParams struct {
	UserId         string
	Amount         money.Money
	Bank           models.BankDetails
	IdempotencyKey string
}

var openWithdrawal = []models.WithdrawalStatus{models.WithdrawalPending, models.WithdrawalProcessing}

func withdrawalReference(id string) string {
	return "TSK-WD-" + strings.ToUpper(strings.ReplaceAll(id, "-", "")[:16])
}

// withdrawalKey scopes a caller-chosen key to its user so it cannot collide
// with other users' keys or with engine-derived keys.
func withdrawalKey(userId, callerKey string) string {
	return fmt.Sprintf("withdrawal:%s:%s", userId, callerKey)
}

func validBank(bank models.BankDetails) bool {
	return strings.TrimSpace(bank.BankName) != "" &&
		strings.TrimSpace(bank.AccountNumber) != "" &&
		strings.TrimSpace(bank.AccountName) != ""
}

// RequestWithdrawal reserves amount plus the configured fee from the balance
// and opens a pending withdrawal request.
func (e *Engine) RequestWithdrawal(ctx context.Context, params WithdrawalParams) (*Result, error) {
	if params.UserId == "" {
		return nil, fmt.Errorf("%w: user id", ErrMissingReference)
	}
	if err := money.RequirePositive(params.Amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if !validBank(params.Bank) {
		return nil, ErrMissingBankDetails
	}
	if params.Amount.Cmp(e.policy.WithdrawalMin) < 0 {
		return nil, fmt.Errorf("%w: %s < %s", ErrBelowMinimum, params.Amount, e.policy.WithdrawalMin)
	}
	if params.Amount.Cmp(e.policy.WithdrawalMax) > 0 {
		return nil, fmt.Errorf("%w: %s > %s", ErrAboveMaximum, params.Amount, e.policy.WithdrawalMax)
	}

	callerKey := params.IdempotencyKey
	if callerKey == "" {
		callerKey = uuid.New().String()
	}
	key := withdrawalKey(params.UserId, callerKey)
	fee := e.policy.WithdrawalFee

	return e.execute(ctx, settlement{
		op:  OpRequestWithdrawal,
		key: key,
		fingerprint: fingerprint(params.UserId, strconv.FormatInt(params.Amount.Kobo(), 10),
			params.Bank.BankName, params.Bank.AccountNumber, params.Bank.AccountName),
		accountId: params.UserId,
		lockIds:   []string{params.UserId},
		apply: func(ctx context.Context, tx store.Tx, res *Result) error {
			account, err := e.lockedAccount(ctx, tx, params.UserId, true)
			if err != nil {
				return err
			}
			total, err := params.Amount.CheckedAdd(fee)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
			}
			balance, err := account.Balance.SubNonNegative(total)
			if err != nil {
				return fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, total, account.Balance)
			}
			account.Balance = balance

			now := e.now()
			requestId := uuid.New().String()
			entry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
				AccountId:      params.UserId,
				Kind:           models.KindWithdrawalRequest,
				Amount:         total.Neg(),
				BalanceAfter:   account.Balance,
				Status:         models.EntryPending,
				IdempotencyKey: key,
				Description: fmt.Sprintf("Withdrawal of NGN %s (fee %s) to %s %s",
					params.Amount, fee, params.Bank.BankName, params.Bank.AccountNumber),
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			request, err := tx.CreateWithdrawal(ctx, store.CreateWithdrawalParams{
				Id:        requestId,
				UserId:    params.UserId,
				Amount:    params.Amount,
				Fee:       fee,
				Bank:      params.Bank,
				Reference: withdrawalReference(requestId),
				EntryId:   entry.Id,
				CreatedAt: now,
			})
			if err != nil {
				return err
			}
			if err := tx.UpdateAccount(ctx, params.UserId, account.Balance, account.TotalEarned); err != nil {
				return err
			}

			res.Amount = total.Neg()
			res.Balance = account.Balance
			res.TotalEarned = account.TotalEarned
			res.EntryIds = []string{entry.Id}
			res.WithdrawalId = request.Id
			return nil
		},
	})
}

// ApproveWithdrawal settles an open request. The reserved funds stay debited.
func (e *Engine) ApproveWithdrawal(ctx context.Context, requestId string) (*Result, error) {
	return e.settleWithdrawal(ctx, OpApproveWithdrawal, "withdrawal-approve:", requestId,
		func(ctx context.Context, tx store.Tx, request *models.WithdrawalRequest, account *models.Account, res *Result) error {
			now := e.now()
			if err := tx.UpdateWithdrawalStatus(ctx, request.Id, openWithdrawal, models.WithdrawalCompleted, now); err != nil {
				return err
			}
			if err := tx.UpdateEntryStatus(ctx, request.EntryId, models.EntryPending, models.EntryCompleted); err != nil {
				return err
			}
			res.Amount = request.Total().Neg()
			res.EntryIds = []string{request.EntryId}
			return nil
		})
}

// RejectWithdrawal fails an open request and refunds amount plus fee.
func (e *Engine) RejectWithdrawal(ctx context.Context, requestId string) (*Result, error) {
	key := "withdrawal-reject:" + requestId
	return e.settleWithdrawal(ctx, OpRejectWithdrawal, "withdrawal-reject:", requestId,
		func(ctx context.Context, tx store.Tx, request *models.WithdrawalRequest, account *models.Account, res *Result) error {
			now := e.now()
			if err := tx.UpdateWithdrawalStatus(ctx, request.Id, openWithdrawal, models.WithdrawalFailed, now); err != nil {
				return err
			}
			if err := tx.UpdateEntryStatus(ctx, request.EntryId, models.EntryPending, models.EntryFailed); err != nil {
				return err
			}

			refund := request.Total()
			if err := credit(account, models.KindWithdrawalRefund, refund); err != nil {
				return err
			}
			entry, err := tx.AppendEntry(ctx, store.AppendEntryParams{
				AccountId:      request.UserId,
				Kind:           models.KindWithdrawalRefund,
				Amount:         refund,
				BalanceAfter:   account.Balance,
				Status:         models.EntryCompleted,
				IdempotencyKey: key,
				RelatedEntryId: request.EntryId,
				Description:    fmt.Sprintf("Refund of rejected withdrawal %s", request.Reference),
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
			if err := tx.UpdateAccount(ctx, request.UserId, account.Balance, account.TotalEarned); err != nil {
				return err
			}
			res.Amount = refund
			res.EntryIds = []string{entry.Id}
			return nil
		})
}

// MarkWithdrawalProcessing records that a pending payout has been handed to the bank.
func (e *Engine) MarkWithdrawalProcessing(ctx context.Context, requestId string) (*Result, error) {
	return e.settleWithdrawal(ctx, OpMarkProcessing, "withdrawal-processing:", requestId,
		func(ctx context.Context, tx store.Tx, request *models.WithdrawalRequest, account *models.Account, res *Result) error {
			if request.Status != models.WithdrawalPending {
				return fmt.Errorf("%w: %s is %s", ErrNotPending, request.Id, request.Status)
			}
			from := []models.WithdrawalStatus{models.WithdrawalPending}
			if err := tx.UpdateWithdrawalStatus(ctx, request.Id, from, models.WithdrawalProcessing, e.now()); err != nil {
				return err
			}
			res.EntryIds = []string{request.EntryId}
			return nil
		})
}

type withdrawalTransition func(ctx context.Context, tx store.Tx, request *models.WithdrawalRequest, account *models.Account, res *Result) error

// settleWithdrawal runs an admin transition on an open request under its owner's lock.
// The reserving entry must still be pending and match the request total.
func (e *Engine) settleWithdrawal(ctx context.Context, op, keyPrefix, requestId string, transition withdrawalTransition) (*Result, error) {
	if requestId == "" {
		return nil, fmt.Errorf("%w: withdrawal id", ErrMissingReference)
	}
	request, err := e.store.GetWithdrawal(ctx, requestId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWithdrawalNotFound, requestId)
	}
	if err != nil {
		return nil, err
	}

	return e.execute(ctx, settlement{
		op:        op,
		key:       keyPrefix + requestId,
		accountId: request.UserId,
		lockIds:   []string{request.UserId},
		apply: func(ctx context.Context, tx store.Tx, res *Result) error {
			current, err := tx.Withdrawal(ctx, requestId)
			if err != nil {
				return err
			}
			if !current.Status.Open() {
				return fmt.Errorf("%w: %s is %s", ErrNotPending, requestId, current.Status)
			}
			reserved, err := tx.Entry(ctx, current.EntryId)
			if err != nil {
				return err
			}
			if reserved.Status != models.EntryPending || reserved.Amount != current.Total().Neg() {
				return fmt.Errorf("%w: reservation %s for %s is %s %s",
					store.ErrInvariantViolation, reserved.Id, requestId, reserved.Status, reserved.Amount)
			}
			account, err := e.lockedAccount(ctx, tx, current.UserId, false)
			if err != nil {
				return err
			}
			if err := transition(ctx, tx, current, account, res); err != nil {
				return err
			}
			res.WithdrawalId = current.Id
			res.Balance = account.Balance
			res.TotalEarned = account.TotalEarned
			return nil
		},
	})
}

// Withdrawal returns one request.
func (e *Engine) Withdrawal(ctx context.Context, requestId string) (*models.WithdrawalRequest, error) {
	request, err := e.store.GetWithdrawal(ctx, requestId)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWithdrawalNotFound, requestId)
	}
	return request, err
}

// Withdrawals lists requests, newest first.
func (e *Engine) Withdrawals(ctx context.Context, filter store.WithdrawalFilter) ([]models.WithdrawalRequest, error) {
	return e.store.ListWithdrawals(ctx, filter)
}
