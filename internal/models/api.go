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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountView is an account as returned by the API. Amounts are in naira.
type AccountView struct {
	UserId         string          `json:"user_id"`
	Email          string          `json:"email,omitempty"`
	FullName       string          `json:"full_name,omitempty"`
	ReferralCode   string          `json:"referral_code"`
	Balance        decimal.Decimal `json:"balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	IsActivated    bool            `json:"is_activated"`
	ActivationDate *time.Time      `json:"activation_date,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func NewAccountView(a *Account) AccountView {
	return AccountView{
		UserId:         a.UserId,
		Email:          a.Email,
		FullName:       a.FullName,
		ReferralCode:   a.ReferralCode,
		Balance:        a.Balance.Naira(),
		TotalEarned:    a.TotalEarned.Naira(),
		IsActivated:    a.IsActivated,
		ActivationDate: a.ActivationDate,
		CreatedAt:      a.CreatedAt,
	}
}

// EntryRecord represents a ledger entry in the user's history
type EntryRecord struct {
	Id             string          `json:"id"`
	Kind           EntryKind       `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	Status         EntryStatus     `json:"status"`
	RelatedEntryId string          `json:"related_entry_id,omitempty"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func NewEntryRecord(e LedgerEntry) EntryRecord {
	return EntryRecord{
		Id:             e.Id,
		Kind:           e.Kind,
		Amount:         e.Amount.Naira(),
		BalanceAfter:   e.BalanceAfter.Naira(),
		Status:         e.Status,
		RelatedEntryId: e.RelatedEntryId,
		Description:    e.Description,
		CreatedAt:      e.CreatedAt,
	}
}

type ReferralRecord struct {
	ReferredId string          `json:"referred_id"`
	BonusPaid  decimal.Decimal `json:"bonus_paid"`
	CreatedAt  time.Time       `json:"created_at"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
}

func NewReferralRecord(r ReferralEdge) ReferralRecord {
	return ReferralRecord{
		ReferredId: r.ReferredId,
		BonusPaid:  r.BonusPaid.Naira(),
		CreatedAt:  r.CreatedAt,
		PaidAt:     r.PaidAt,
	}
}

type WithdrawalRecord struct {
	Id        string           `json:"id"`
	UserId    string           `json:"user_id"`
	Amount    decimal.Decimal  `json:"amount"`
	Fee       decimal.Decimal  `json:"fee"`
	Total     decimal.Decimal  `json:"total"`
	Bank      BankDetails      `json:"bank"`
	Status    WithdrawalStatus `json:"status"`
	Reference string           `json:"reference"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewWithdrawalRecord(w *WithdrawalRequest) WithdrawalRecord {
	return WithdrawalRecord{
		Id:        w.Id,
		UserId:    w.UserId,
		Amount:    w.Amount.Naira(),
		Fee:       w.Fee.Naira(),
		Total:     w.Total().Naira(),
		Bank:      w.Bank,
		Status:    w.Status,
		Reference: w.Reference,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

// SettlementResult represents the outcome of a balance-changing request
type SettlementResult struct {
	Operation     string          `json:"operation"`
	UserId        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	TotalEarned   decimal.Decimal `json:"total_earned"`
	EntryIds      []string        `json:"entry_ids,omitempty"`
	WithdrawalId  string          `json:"withdrawal_id,omitempty"`
	StreakDay     int             `json:"streak_day,omitempty"`
	CurrentStreak int             `json:"current_streak,omitempty"`
	Replayed      bool            `json:"replayed"`
	CompletedAt   time.Time       `json:"completed_at"`
}

type RegisterRequest struct {
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	ReferralCode string `json:"referral_code"`
}

type WithdrawalRequestBody struct {
	Amount decimal.Decimal `json:"amount"`
	Bank   BankDetails     `json:"bank"`
}

type TaskRewardRequest struct {
	UserId string          `json:"user_id"`
	TaskId string          `json:"task_id"`
	Amount decimal.Decimal `json:"amount"`
}

type ReferralPayoutRequest struct {
	ReferrerId string `json:"referrer_id"`
	ReferredId string `json:"referred_id"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
}
