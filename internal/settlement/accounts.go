package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	referralCodePrefix   = "TSK"
	referralCodeAttempts = 5
	defaultEntriesLimit  = 50
)

// Registration is a new user signing up, optionally with someone's referral code.
type Registration struct {
	UserId       string
	Email        string
	FullName     string
	ReferralCode string
}

func newReferralCode() string {
	return referralCodePrefix + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// RegisterAccount opens an account with a zero balance and a fresh referral
// code, and records who referred the user when a valid code is given.
func (e *Engine) RegisterAccount(ctx context.Context, reg Registration) (*models.Account, error) {
	if reg.UserId == "" {
		return nil, fmt.Errorf("%w: user id", ErrMissingReference)
	}

	var referrer *models.Account
	if code := strings.ToUpper(strings.TrimSpace(reg.ReferralCode)); code != "" {
		found, err := e.store.GetAccountByReferralCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidReferralCode, code)
		}
		if err != nil {
			return nil, err
		}
		if found.UserId == reg.UserId {
			return nil, ErrSelfReferral
		}
		referrer = found
	}

	if _, err := e.store.GetAccount(ctx, reg.UserId); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, reg.UserId)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var account *models.Account
	for attempt := 1; ; attempt++ {
		created, err := e.store.CreateAccount(ctx, store.CreateAccountParams{
			UserId:       reg.UserId,
			Email:        reg.Email,
			FullName:     reg.FullName,
			ReferralCode: newReferralCode(),
		})
		if err == nil {
			account = created
			break
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		if _, getErr := e.store.GetAccount(ctx, reg.UserId); getErr == nil {
			return nil, fmt.Errorf("%w: %s", ErrAccountExists, reg.UserId)
		}
		if attempt == referralCodeAttempts {
			return nil, fmt.Errorf("unable to generate a unique referral code: %w", err)
		}
	}

	if referrer != nil {
		if _, err := e.store.CreateReferralEdge(ctx, referrer.UserId, account.UserId, e.now()); err != nil {
			zap.L().Error("Account created without its referral",
				zap.String("user_id", account.UserId),
				zap.String("referrer_id", referrer.UserId),
				zap.Error(err))
			return account, fmt.Errorf("failed to record referral: %w", err)
		}
	}
	return account, nil
}

// Account returns the current state of an account.
func (e *Engine) Account(ctx context.Context, userId string) (*models.Account, error) {
	account, err := e.store.GetAccount(ctx, userId)
	if err != nil {
		return nil, accountNotFound(userId, err)
	}
	return account, nil
}

// Entries returns an account's ledger entries, newest first.
func (e *Engine) Entries(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error) {
	if _, err := e.Account(ctx, userId); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultEntriesLimit
	}
	if offset < 0 {
		offset = 0
	}
	return e.store.ListEntries(ctx, userId, limit, offset)
}

// Referrals lists the users referrerId has referred.
func (e *Engine) Referrals(ctx context.Context, referrerId string) ([]models.ReferralEdge, error) {
	if _, err := e.Account(ctx, referrerId); err != nil {
		return nil, err
	}
	return e.store.ListReferrals(ctx, referrerId)
}
