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

// ClaimIdempotencyKey runs in its own short transaction. An unseen key is inserted
// as pending; a failed key for the same operation and fingerprint is reclaimed.
// Any other existing record is returned unclaimed for the caller to interpret.
func (s *Service) ClaimIdempotencyKey(ctx context.Context, params store.ClaimKeyParams) (store.ClaimOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.ClaimOutcome{}, fmt.Errorf("failed to begin transaction: %w", mapError(err))
	}
	defer tx.Rollback()

	record, err := scanIdempotencyRecord(tx.QueryRowContext(ctx, queryGetIdempotencyKey, params.Key))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, queryInsertIdempotencyKey,
			params.Key, params.Operation, params.Fingerprint, params.AccountId, params.Now, params.Now); err != nil {
			return store.ClaimOutcome{}, fmt.Errorf("failed to insert idempotency key: %w", mapError(err))
		}
		if err := tx.Commit(); err != nil {
			return store.ClaimOutcome{}, fmt.Errorf("failed to commit transaction: %w", mapError(err))
		}
		return store.ClaimOutcome{Claimed: true, Record: models.IdempotencyRecord{
			Key:         params.Key,
			Operation:   params.Operation,
			Fingerprint: params.Fingerprint,
			AccountId:   params.AccountId,
			Status:      models.KeyPending,
			Attempts:    1,
			CreatedAt:   params.Now,
			UpdatedAt:   params.Now,
		}}, nil
	case err != nil:
		return store.ClaimOutcome{}, fmt.Errorf("failed to query idempotency key: %w", mapError(err))
	}

	if record.Status == models.KeyFailed && record.Operation == params.Operation && record.Fingerprint == params.Fingerprint {
		if _, err := tx.ExecContext(ctx, queryReclaimIdempotencyKey, params.Now, params.Key); err != nil {
			return store.ClaimOutcome{}, fmt.Errorf("failed to reclaim idempotency key: %w", mapError(err))
		}
		if err := tx.Commit(); err != nil {
			return store.ClaimOutcome{}, fmt.Errorf("failed to commit transaction: %w", mapError(err))
		}
		zap.L().Info("Reclaimed failed idempotency key",
			zap.String("key", params.Key),
			zap.String("previous_error", record.ErrorCode),
			zap.Int("attempts", record.Attempts+1))
		record.Status = models.KeyPending
		record.ErrorCode = ""
		record.Attempts++
		record.UpdatedAt = params.Now
		return store.ClaimOutcome{Claimed: true, Record: *record}, nil
	}

	return store.ClaimOutcome{Claimed: false, Record: *record}, nil
}

// FailIdempotencyKey releases a pending key whose effect was not applied.
func (s *Service) FailIdempotencyKey(ctx context.Context, key, errorCode string, at time.Time) error {
	return s.ResolveIdempotencyKey(ctx, key, models.KeyFailed, errorCode, at)
}

func (s *Service) ResolveIdempotencyKey(ctx context.Context, key string, status models.KeyStatus, errorCode string, at time.Time) error {
	if status == models.KeyPending {
		return fmt.Errorf("%w: cannot resolve key %s back to pending", store.ErrInvariantViolation, key)
	}
	result, err := s.db.ExecContext(ctx, queryResolveIdempotencyKey, status, errorCode, at, key)
	if err != nil {
		return fmt.Errorf("failed to resolve idempotency key: %w", mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("idempotency key %s is not pending: %w", key, store.ErrConcurrentModification)
	}
	return nil
}

func (s *Service) GetIdempotencyRecord(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	record, err := scanIdempotencyRecord(s.db.QueryRowContext(ctx, queryGetIdempotencyKey, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("idempotency key %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query idempotency key: %w", mapError(err))
	}
	return record, nil
}

// ListStalePendingKeys returns pending keys last touched before olderThan, oldest first.
func (s *Service) ListStalePendingKeys(ctx context.Context, olderThan time.Time, limit int) ([]models.IdempotencyRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, queryListStalePendingKeys, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale keys: %w", mapError(err))
	}
	defer closeRows(rows)

	var records []models.IdempotencyRecord
	for rows.Next() {
		record, err := scanIdempotencyRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan idempotency key: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating idempotency rows: %w", err)
	}
	return records, nil
}

func scanIdempotencyRecord(row rowScanner) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	err := row.Scan(&record.Key, &record.Operation, &record.Fingerprint, &record.AccountId, &record.Status,
		&record.Result, &record.ErrorCode, &record.Attempts, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
