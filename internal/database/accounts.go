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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	zap.L().Info("Creating account",
		zap.String("user_id", params.UserId),
		zap.String("email", params.Email),
		zap.String("referral_code", params.ReferralCode))

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, queryInsertAccount,
		params.UserId, params.Email, params.FullName, params.ReferralCode, now, now)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, store.ErrConstraintViolation) {
			return nil, fmt.Errorf("account %s or referral code %s: %w", params.UserId, params.ReferralCode, store.ErrDuplicate)
		}
		zap.L().Error("Failed to insert account", zap.String("user_id", params.UserId), zap.Error(err))
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}

	zap.L().Info("Account created successfully", zap.String("user_id", params.UserId))
	return s.GetAccount(ctx, params.UserId)
}

func (s *Service) GetAccount(ctx context.Context, userId string) (*models.Account, error) {
	zap.L().Debug("Querying account", zap.String("user_id", userId))
	return getAccount(ctx, s.db, userId)
}

func (s *Service) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	zap.L().Debug("Querying account by referral code", zap.String("referral_code", code))

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccountByReferralCode, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("referral code %s: %w", code, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query account by referral code: %w", mapError(err))
	}
	return account, nil
}

func (s *Service) ListAccountIds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccountIds)
	if err != nil {
		return nil, fmt.Errorf("unable to list accounts: %w", mapError(err))
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("unable to scan account id: %w", err)
		}
		ids = append(ids, id)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}
	return ids, nil
}

func getAccount(ctx context.Context, q queryer, userId string) (*models.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, queryGetAccount, userId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s: %w", userId, store.ErrNotFound)
	}
	if err != nil {
		zap.L().Error("Failed to query account", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query account: %w", mapError(err))
	}
	return account, nil
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var activationDate sql.NullTime
	err := row.Scan(&account.UserId, &account.Email, &account.FullName, &account.ReferralCode,
		&account.Balance, &account.TotalEarned, &account.IsActivated, &activationDate,
		&account.ActivationRef, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if activationDate.Valid {
		at := activationDate.Time
		account.ActivationDate = &at
	}
	return &account, nil
}
