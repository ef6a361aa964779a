package settlement

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

const releaseTimeout = 2 * time.Second

// settlement describes one keyed operation for execute. already is returned
// alongside a replayed result for operations that happen once per natural key.
type settlement struct {
	op          string
	key         string
	fingerprint string
	accountId   string
	lockIds     []string
	already     error
	apply       func(ctx context.Context, tx store.Tx, res *Result) error
}

// execute claims the key, applies the effect under the account locks and
// records the result in the same transaction.
func (e *Engine) execute(ctx context.Context, s settlement) (*Result, error) {
	start := time.Now()
	res, err := e.executeOnce(ctx, s)

	result := "success"
	switch {
	case err != nil:
		result = CodeOf(err)
	case res != nil && res.Replayed:
		result = "replayed"
	}
	e.metrics.observe(s.op, result, res != nil && res.Replayed, time.Since(start))
	return res, err
}

func (e *Engine) executeOnce(ctx context.Context, s settlement) (*Result, error) {
	outcome, err := e.store.ClaimIdempotencyKey(ctx, store.ClaimKeyParams{
		Key:         s.key,
		Operation:   s.op,
		Fingerprint: s.fingerprint,
		AccountId:   s.accountId,
		Now:         e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !outcome.Claimed {
		return e.replay(s, outcome.Record)
	}

	res := &Result{Operation: s.op, IdempotencyKey: s.key, AccountId: s.accountId}
	err = e.store.WithAccountLock(ctx, s.lockIds, func(ctx context.Context, tx store.Tx) error {
		if err := s.apply(ctx, tx, res); err != nil {
			return err
		}
		res.CompletedAt = e.now()
		payload, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return tx.CompleteIdempotencyKey(ctx, s.key, payload, res.CompletedAt)
	})
	if err != nil {
		if errors.Is(err, store.ErrConstraintViolation) {
			// Lost a race on the key or an entry; answer from whatever completed.
			if record, getErr := e.store.GetIdempotencyRecord(ctx, s.key); getErr == nil && record.Status == models.KeyCompleted {
				return e.replay(s, *record)
			}
		}
		e.release(ctx, s, err)
		return nil, err
	}

	zap.L().Info("Settlement applied",
		zap.String("operation", s.op),
		zap.String("idempotency_key", s.key),
		zap.String("account_id", s.accountId),
		zap.String("amount", res.Amount.String()),
		zap.String("balance", res.Balance.String()))
	return res, nil
}

// release marks a claimed key failed. The update only matches a pending record,
// so a transaction that did commit keeps its completed key.
func (e *Engine) release(ctx context.Context, s settlement, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	logFn := zap.L().Warn
	if KindOf(cause) == KindInvariant || KindOf(cause) == KindInternal {
		logFn = zap.L().Error
	}
	logFn("Settlement rejected",
		zap.String("operation", s.op),
		zap.String("idempotency_key", s.key),
		zap.String("account_id", s.accountId),
		zap.String("code", CodeOf(cause)),
		zap.Error(cause))

	if err := e.store.FailIdempotencyKey(ctx, s.key, CodeOf(cause), e.now()); err != nil {
		// Left pending; the sweep resolves it.
		zap.L().Warn("Failed to release idempotency key",
			zap.String("idempotency_key", s.key),
			zap.Error(err))
	}
}

// replay answers a request whose key the caller did not get to claim.
func (e *Engine) replay(s settlement, record models.IdempotencyRecord) (*Result, error) {
	if record.Operation != s.op || record.Fingerprint != s.fingerprint {
		return nil, fmt.Errorf("%w: key %s belongs to %s", ErrIdempotencyConflict, s.key, record.Operation)
	}

	switch record.Status {
	case models.KeyPending:
		return nil, fmt.Errorf("%w: key %s", ErrRetryLater, s.key)
	case models.KeyCompleted:
		res, err := decodeResult(record)
		if err != nil {
			return nil, err
		}
		zap.L().Info("Replaying completed settlement",
			zap.String("operation", s.op),
			zap.String("idempotency_key", s.key))
		return res, s.already
	}
	return nil, fmt.Errorf("%w: key %s is %s", ErrRetryLater, s.key, record.Status)
}

func decodeResult(record models.IdempotencyRecord) (*Result, error) {
	res := &Result{Operation: record.Operation, IdempotencyKey: record.Key, AccountId: record.AccountId}
	if len(record.Result) > 0 {
		if err := json.Unmarshal(record.Result, res); err != nil {
			return nil, fmt.Errorf("failed to decode stored result for %s: %w", record.Key, err)
		}
	}
	res.Replayed = true
	return res, nil
}

// priorResult loads the completed result recorded under key.
func (e *Engine) priorResult(ctx context.Context, key string) (*Result, error) {
	record, err := e.store.GetIdempotencyRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	if record.Status != models.KeyCompleted {
		return nil, fmt.Errorf("key %s is %s", key, record.Status)
	}
	return decodeResult(*record)
}

// fingerprint hashes the request fields that must match on a retry.
func fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
