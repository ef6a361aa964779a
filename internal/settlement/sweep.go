package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

const abandonedCode = "abandoned"

// SweepReport summarizes one pass over stale pending keys.
type SweepReport struct {
	Scanned   int `json:"scanned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// SweepPending resolves idempotency keys left pending for longer than
// staleAfter by a process that died between claim and completion. A key whose
// entry exists is marked completed; any other is marked failed so the caller
// can retry it.
func (e *Engine) SweepPending(ctx context.Context, staleAfter time.Duration, limit int) (SweepReport, error) {
	var report SweepReport
	cutoff := e.now().Add(-staleAfter)

	records, err := e.store.ListStalePendingKeys(ctx, cutoff, limit)
	if err != nil {
		return report, fmt.Errorf("failed to list stale keys: %w", err)
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++

		status, code := models.KeyFailed, abandonedCode
		_, err := e.store.FindEntryByIdempotencyKey(ctx, record.Key)
		switch {
		case err == nil:
			status, code = models.KeyCompleted, ""
		case !errors.Is(err, store.ErrNotFound):
			zap.L().Warn("Unable to inspect stale key", zap.String("idempotency_key", record.Key), zap.Error(err))
			report.Skipped++
			continue
		}

		err = e.store.ResolveIdempotencyKey(ctx, record.Key, status, code, e.now())
		if errors.Is(err, store.ErrConcurrentModification) {
			// Finished by its owner in the meantime.
			report.Skipped++
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to resolve key %s: %w", record.Key, err)
		}

		if status == models.KeyCompleted {
			report.Completed++
		} else {
			report.Failed++
		}
		e.metrics.swept(string(status))
		zap.L().Info("Resolved stale idempotency key",
			zap.String("idempotency_key", record.Key),
			zap.String("operation", record.Operation),
			zap.String("account_id", record.AccountId),
			zap.String("status", string(status)),
			zap.Time("claimed_at", record.CreatedAt))
	}
	return report, nil
}

// Reconcile checks that an account's stored balance equals the sum of its entries.
func (e *Engine) Reconcile(ctx context.Context, userId string) (store.Reconciliation, error) {
	rec, err := e.store.ReconcileAccount(ctx, userId)
	if err != nil {
		return rec, accountNotFound(userId, err)
	}
	if !rec.Balanced() {
		e.metrics.mismatch()
		return rec, fmt.Errorf("%w: %s stored %s, entries sum to %s",
			ErrBalanceMismatch, userId, rec.StoredBalance, rec.EntrySum)
	}
	return rec, nil
}

// ReconcileAll reconciles every account and returns the ones that disagree.
func (e *Engine) ReconcileAll(ctx context.Context) ([]store.Reconciliation, error) {
	ids, err := e.store.ListAccountIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	var mismatched []store.Reconciliation
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return mismatched, err
		}
		rec, err := e.Reconcile(ctx, id)
		if errors.Is(err, ErrBalanceMismatch) {
			mismatched = append(mismatched, rec)
			continue
		}
		if err != nil {
			return mismatched, err
		}
	}
	return mismatched, nil
}
