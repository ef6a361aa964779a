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
	"errors"
	"net/http"
	"strconv"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/settlement"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxPageSize = 100

// handleRegister opens the caller's account. The user id comes from the token.
func (s *LedgerService) handleRegister(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())

	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	account, err := s.engine.RegisterAccount(r.Context(), settlement.Registration{
		UserId:       p.UserId,
		Email:        req.Email,
		FullName:     req.FullName,
		ReferralCode: req.ReferralCode,
	})
	if err != nil && account == nil {
		writeError(w, r, err)
		return
	}
	if err != nil {
		// The account exists; only the referral link failed.
		zap.L().Warn("Registered without referral link",
			zap.String("user_id", p.UserId),
			zap.Error(err))
	}
	writeJSON(w, http.StatusCreated, models.NewAccountView(account))
}

func (s *LedgerService) handleAccount(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	account, err := s.engine.Account(r.Context(), p.UserId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewAccountView(account))
}

// handleEntries returns paginated history, newest first.
func (s *LedgerService) handleEntries(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	limit, offset, ok := pageParams(w, r)
	if !ok {
		return
	}

	entries, err := s.engine.Entries(r.Context(), p.UserId, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := make([]models.EntryRecord, len(entries))
	for i, entry := range entries {
		result[i] = models.NewEntryRecord(entry)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *LedgerService) handleReferrals(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	edges, err := s.engine.Referrals(r.Context(), p.UserId)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result := make([]models.ReferralRecord, len(edges))
	for i, edge := range edges {
		result[i] = models.NewReferralRecord(edge)
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *LedgerService) handleReconcile(w http.ResponseWriter, r *http.Request) {
	rec, err := s.engine.Reconcile(r.Context(), chi.URLParam(r, "id"))
	if err != nil && !errors.Is(err, settlement.ErrBalanceMismatch) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        rec.AccountId,
		"stored_balance": rec.StoredBalance.Naira(),
		"entry_sum":      rec.EntrySum.Naira(),
		"balanced":       err == nil,
	})
}

// pageParams reads limit and offset, writing a 400 when they are malformed.
func pageParams(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	limit, offset := 0, 0
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return 0, 0, false
		}
		limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeProblem(w, http.StatusBadRequest, "invalid_request", "offset must be a non-negative integer")
			return 0, 0, false
		}
		offset = n
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, offset, true
}
