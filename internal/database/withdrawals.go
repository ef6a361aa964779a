package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

const defaultListLimit = 50

func (s *Service) GetWithdrawal(ctx context.Context, requestId string) (*models.WithdrawalRequest, error) {
	return getWithdrawal(ctx, s.db, requestId)
}

func (s *Service) ListWithdrawals(ctx context.Context, filter store.WithdrawalFilter) ([]models.WithdrawalRequest, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	zap.L().Debug("Listing withdrawals",
		zap.String("user_id", filter.UserId),
		zap.String("status", string(filter.Status)),
		zap.Int("limit", limit),
		zap.Int("offset", filter.Offset))

	status := string(filter.Status)
	rows, err := s.db.QueryContext(ctx, queryListWithdrawals,
		filter.UserId, filter.UserId, status, status, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", mapError(err))
	}
	defer closeRows(rows)

	var requests []models.WithdrawalRequest
	for rows.Next() {
		request, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal rows: %w", err)
	}
	return requests, nil
}

func getWithdrawal(ctx context.Context, q queryer, requestId string) (*models.WithdrawalRequest, error) {
	request, err := scanWithdrawal(q.QueryRowContext(ctx, queryGetWithdrawal, requestId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("withdrawal %s: %w", requestId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawal: %w", mapError(err))
	}
	return request, nil
}

// updateWithdrawalStatus moves a request to `to` only while it is in one of `from`.
func updateWithdrawalStatus(ctx context.Context, q queryer, requestId string, from []models.WithdrawalStatus, to models.WithdrawalStatus, at time.Time) error {
	if len(from) == 0 {
		return fmt.Errorf("no source status given for withdrawal %s", requestId)
	}

	query := `UPDATE withdrawal_requests SET status = ?, updated_at = ? WHERE id = ? AND status IN (?` +
		strings.Repeat(", ?", len(from)-1) + `)`
	args := []any{to, at, requestId}
	for _, status := range from {
		args = append(args, status)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update withdrawal status: %w", mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("withdrawal %s changed status concurrently: %w", requestId, store.ErrConcurrentModification)
	}

	zap.L().Info("Withdrawal status updated",
		zap.String("request_id", requestId),
		zap.String("status", string(to)))
	return nil
}

func scanWithdrawal(row rowScanner) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	err := row.Scan(&request.Id, &request.UserId, &request.Amount, &request.Fee,
		&request.Bank.BankName, &request.Bank.AccountNumber, &request.Bank.AccountName,
		&request.Status, &request.Reference, &request.EntryId, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &request, nil
}
