package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func appendEntry(ctx context.Context, q queryer, params store.AppendEntryParams) (*models.LedgerEntry, error) {
	if params.IdempotencyKey == "" {
		return nil, fmt.Errorf("ledger entry requires an idempotency key")
	}
	if params.BalanceAfter.IsNegative() {
		return nil, fmt.Errorf("%w: entry would leave %s at %s", store.ErrInvariantViolation, params.AccountId, params.BalanceAfter)
	}

	zap.L().Info("Appending ledger entry",
		zap.String("account_id", params.AccountId),
		zap.String("kind", string(params.Kind)),
		zap.String("amount", params.Amount.String()),
		zap.String("status", string(params.Status)),
		zap.String("idempotency_key", params.IdempotencyKey))

	entry, err := scanEntry(q.QueryRowContext(ctx, queryInsertEntry,
		uuid.New().String(), params.AccountId, params.Kind, params.Amount, params.BalanceAfter, params.Status,
		params.IdempotencyKey, params.RelatedEntryId, params.Description, params.CreatedAt, params.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", mapError(err))
	}
	return entry, nil
}

func (s *Service) FindEntryByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	entry, err := scanEntry(s.db.QueryRowContext(ctx, queryFindEntryByIdempotencyKey, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry with key %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry by idempotency key: %w", mapError(err))
	}
	return entry, nil
}

// ListEntries returns paginated entry history for an account, newest first
func (s *Service) ListEntries(ctx context.Context, userId string, limit, offset int) ([]models.LedgerEntry, error) {
	zap.L().Debug("Getting entry history",
		zap.String("user_id", userId),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryListEntries, userId, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get entry history: %w", mapError(err))
	}
	defer closeRows(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during entry row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

func scanEntry(row rowScanner) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := row.Scan(&entry.Id, &entry.AccountId, &entry.Kind, &entry.Amount, &entry.BalanceAfter, &entry.Status,
		&entry.IdempotencyKey, &entry.RelatedEntryId, &entry.Description, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
