package database

import (
	"context"
	"fmt"

	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

// ReconcileAccount compares the stored balance with the sum of every entry amount.
// Pending and failed withdrawal debits are included because their refunds are separate entries.
func (s *Service) ReconcileAccount(ctx context.Context, userId string) (store.Reconciliation, error) {
	zap.L().Debug("Reconciling balance", zap.String("user_id", userId))

	account, err := s.GetAccount(ctx, userId)
	if err != nil {
		return store.Reconciliation{}, fmt.Errorf("failed to get current balance: %w", err)
	}

	var calculated money.Money
	if err := s.db.QueryRowContext(ctx, queryReconcileBalance, userId).Scan(&calculated); err != nil {
		return store.Reconciliation{}, fmt.Errorf("failed to calculate balance from entries: %w", mapError(err))
	}

	result := store.Reconciliation{
		AccountId:     userId,
		StoredBalance: account.Balance,
		EntrySum:      calculated,
	}

	if !result.Balanced() {
		zap.L().Error("Balance reconciliation failed",
			zap.String("user_id", userId),
			zap.String("current_balance", account.Balance.String()),
			zap.String("calculated_balance", calculated.String()),
			zap.String("difference", account.Balance.Sub(calculated).String()))
		return result, nil
	}

	zap.L().Debug("Balance reconciliation successful",
		zap.String("user_id", userId),
		zap.String("balance", account.Balance.String()))
	return result, nil
}
