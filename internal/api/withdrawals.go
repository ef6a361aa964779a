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

package api

import (
	"net/http"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/settlement"
	"taskona-ledger-go/internal/store"

	"github.com/go-chi/chi/v5"
)

// IdempotencyKeyHeader lets clients retry a withdrawal request safely.
const IdempotencyKeyHeader = "Idempotency-Key"

func (s *LedgerService) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req models.WithdrawalRequestBody
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	amount, err := money.FromDecimal(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.engine.RequestWithdrawal(r.Context(), settlement.WithdrawalParams{
		UserId:         p.UserId,
		Amount:         amount,
		Bank:           req.Bank,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	writeSettlement(w, r, res, err)
}

func (s *LedgerService) handleListOwnWithdrawals(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	s.listWithdrawals(w, r, p.UserId)
}

// handleGetOwnWithdrawal hides other users' requests behind a 404.
func (s *LedgerService) handleGetOwnWithdrawal(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	request, err := s.engine.Withdrawal(r.Context(), chi.URLParam(r, "id"))
	if err == nil && request.UserId != p.UserId && !p.IsAdmin() {
		err = settlement.ErrWithdrawalNotFound
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewWithdrawalRecord(request))
}

// handleListWithdrawals is the admin queue, filterable by status and user.
func (s *LedgerService) handleListWithdrawals(w http.ResponseWriter, r *http.Request) {
	s.listWithdrawals(w, r, r.URL.Query().Get("user_id"))
}

func (s *LedgerService) listWithdrawals(w http.ResponseWriter, r *http.Request, userId string) {
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}
	status := models.WithdrawalStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.WithdrawalPending, models.WithdrawalProcessing, models.WithdrawalCompleted, models.WithdrawalFailed:
	default:
		writeProblem(w, http.StatusBadRequest, "invalid_request", "unknown withdrawal status "+string(status))
		return
	}

	requests, err := s.engine.Withdrawals(r.Context(), store.WithdrawalFilter{
		UserId: userId,
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := make([]models.WithdrawalRecord, len(requests))
	for i := range requests {
		result[i] = models.NewWithdrawalRecord(&requests[i])
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *LedgerService) handleApproveWithdrawal(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.ApproveWithdrawal(r.Context(), chi.URLParam(r, "id"))
	writeSettlement(w, r, res, err)
}

func (s *LedgerService) handleRejectWithdrawal(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.RejectWithdrawal(r.Context(), chi.URLParam(r, "id"))
	writeSettlement(w, r, res, err)
}

func (s *LedgerService) handleMarkProcessing(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.MarkWithdrawalProcessing(r.Context(), chi.URLParam(r, "id"))
	writeSettlement(w, r, res, err)
}
