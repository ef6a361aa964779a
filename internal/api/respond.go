package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/settlement"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}

func writeProblem(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, models.ErrorResponse{Code: code, Message: msg})
}

// statusFor maps a settlement error kind to an HTTP status.
func statusFor(kind settlement.Kind) int {
	switch kind {
	case settlement.KindValidation:
		return http.StatusBadRequest
	case settlement.KindNotFound:
		return http.StatusNotFound
	case settlement.KindPrecondition, settlement.KindConflict:
		return http.StatusConflict
	case settlement.KindRetryable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError reports a settlement failure. Internal details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := settlement.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("code", settlement.CodeOf(err)),
			zap.Error(err))
		msg = "internal error"
	}
	if kind == settlement.KindRetryable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, models.ErrorResponse{
		Code:    settlement.CodeOf(err),
		Kind:    string(kind),
		Message: msg,
	})
}

func toSettlementResult(res *settlement.Result) models.SettlementResult {
	return models.SettlementResult{
		Operation:     res.Operation,
		UserId:        res.AccountId,
		Amount:        res.Amount.Naira(),
		NewBalance:    res.Balance.Naira(),
		TotalEarned:   res.TotalEarned.Naira(),
		EntryIds:      res.EntryIds,
		WithdrawalId:  res.WithdrawalId,
		StreakDay:     res.StreakDay,
		CurrentStreak: res.CurrentStreak,
		Replayed:      res.Replayed,
		CompletedAt:   res.CompletedAt,
	}
}

// writeSettlement answers with the result, or the error when there is none.
// Fresh effects are 201 and replays are 200.
func writeSettlement(w http.ResponseWriter, r *http.Request, res *settlement.Result, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, toSettlementResult(res))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
