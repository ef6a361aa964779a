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
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/settlement"

	"go.uber.org/zap"
)

const PaystackSignatureHeader = "X-Paystack-Signature"

// webhookAck is the body returned to Paystack. Anything other than a 2xx
// makes Paystack redeliver the event.
type webhookAck struct {
	Status string `json:"status"`
	Code   string `json:"code,omitempty"`
}

func (s *LedgerService) verifyPaystackSignature(body []byte, signature string) bool {
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(expected) == 0 {
		return false
	}
	mac := hmac.New(sha512.New, s.paystackSecret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expected)
}

// handlePaystackWebhook processes confirmed charges. The Paystack reference is
// the idempotency key, so redeliveries settle once.
func (s *LedgerService) handlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", "unable to read body")
		return
	}
	if !s.verifyPaystackSignature(body, r.Header.Get(PaystackSignatureHeader)) {
		zap.L().Warn("Rejected Paystack webhook with bad signature",
			zap.String("remote_addr", r.RemoteAddr))
		writeProblem(w, http.StatusUnauthorized, "invalid_signature", "signature mismatch")
		return
	}

	var event models.PaystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", "malformed event payload")
		return
	}

	zap.L().Info("Processing Paystack event",
		zap.String("event", event.Event),
		zap.String("reference", event.Data.Reference),
		zap.String("purpose", event.Data.Metadata.Purpose),
		zap.String("user_id", event.Data.Metadata.UserId),
		zap.Int64("amount_kobo", event.Data.Amount))

	if event.Event != models.PaystackChargeSuccess {
		writeJSON(w, http.StatusOK, webhookAck{Status: "ignored"})
		return
	}

	charge := event.Data
	amount := money.FromKobo(charge.Amount)
	var res *settlement.Result
	switch charge.Metadata.Purpose {
	case models.PaymentPurposeActivation:
		if fee := s.engine.Policy().ActivationFee; amount.Cmp(fee) < 0 {
			zap.L().Warn("Activation charge below the activation fee",
				zap.String("reference", charge.Reference),
				zap.String("user_id", charge.Metadata.UserId),
				zap.String("amount", amount.String()),
				zap.String("fee", fee.String()))
			writeJSON(w, http.StatusOK, webhookAck{Status: "ignored", Code: "underpaid"})
			return
		}
		res, err = s.engine.ActivateAccount(r.Context(), charge.Metadata.UserId, charge.Reference)
	case models.PaymentPurposeTopUp:
		res, err = s.engine.TopUp(r.Context(), charge.Metadata.UserId, amount, charge.Reference)
	default:
		zap.L().Warn("Paystack charge with unknown purpose",
			zap.String("reference", charge.Reference),
			zap.String("purpose", charge.Metadata.Purpose))
		writeJSON(w, http.StatusOK, webhookAck{Status: "ignored", Code: "unknown_purpose"})
		return
	}

	if res != nil && res.Replayed && res.IdempotencyKey == charge.Reference {
		writeJSON(w, http.StatusOK, webhookAck{Status: "duplicate"})
		return
	}
	if err != nil {
		switch settlement.KindOf(err) {
		case settlement.KindRetryable, settlement.KindInternal, settlement.KindInvariant:
			writeError(w, r, err)
		default:
			// Redelivery cannot change the outcome.
			zap.L().Warn("Paystack charge not settled",
				zap.String("reference", charge.Reference),
				zap.String("code", settlement.CodeOf(err)),
				zap.Error(err))
			writeJSON(w, http.StatusOK, webhookAck{Status: "rejected", Code: settlement.CodeOf(err)})
		}
		return
	}

	writeJSON(w, http.StatusOK, webhookAck{Status: "settled"})
}
