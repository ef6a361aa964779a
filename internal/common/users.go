/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"context"
	"fmt"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

// LoadAccounts retrieves accounts based on an optional user id filter.
// If userFilter is provided, returns that single account.
// If userFilter is empty, returns all accounts.
func LoadAccounts(ctx context.Context, ledger store.LedgerStore, userFilter string, logger *zap.Logger) ([]models.Account, error) {
	var accounts []models.Account

	if userFilter != "" {
		logger.Info("Looking up account", zap.String("user_id", userFilter))
		account, err := ledger.GetAccount(ctx, userFilter)
		if err != nil {
			return nil, fmt.Errorf("account not found: %w", err)
		}
		accounts = append(accounts, *account)
	} else {
		ids, err := ledger.ListAccountIds(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		for _, id := range ids {
			account, err := ledger.GetAccount(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to get account %s: %w", id, err)
			}
			accounts = append(accounts, *account)
		}
	}

	logger.Info("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}
