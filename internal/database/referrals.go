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

// CreateReferralEdge links referredId to referrerId. A user can be referred once.
func (s *Service) CreateReferralEdge(ctx context.Context, referrerId, referredId string, at time.Time) (*models.ReferralEdge, error) {
	if referrerId == referredId {
		return nil, fmt.Errorf("%w: user %s cannot refer themselves", store.ErrConstraintViolation, referrerId)
	}

	_, err := s.db.ExecContext(ctx, queryInsertReferralEdge, referrerId, referredId, at)
	if err != nil {
		err = mapError(err)
		if errors.Is(err, store.ErrConstraintViolation) {
			if _, lookupErr := s.GetReferrer(ctx, referredId); lookupErr == nil {
				return nil, fmt.Errorf("user %s already has a referrer: %w", referredId, store.ErrDuplicate)
			}
		}
		return nil, fmt.Errorf("failed to insert referral edge: %w", err)
	}

	zap.L().Info("Referral edge created",
		zap.String("referrer_id", referrerId),
		zap.String("referred_id", referredId))
	return getReferralEdge(ctx, s.db, referrerId, referredId)
}

func (s *Service) ListReferrals(ctx context.Context, referrerId string) ([]models.ReferralEdge, error) {
	rows, err := s.db.QueryContext(ctx, queryListReferrals, referrerId)
	if err != nil {
		return nil, fmt.Errorf("failed to list referrals: %w", mapError(err))
	}
	defer closeRows(rows)

	var edges []models.ReferralEdge
	for rows.Next() {
		edge, err := scanReferralEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan referral edge: %w", err)
		}
		edges = append(edges, *edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral rows: %w", err)
	}
	return edges, nil
}

func (s *Service) GetReferrer(ctx context.Context, referredId string) (*models.ReferralEdge, error) {
	edge, err := scanReferralEdge(s.db.QueryRowContext(ctx, queryGetReferrer, referredId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("referrer of %s: %w", referredId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query referrer: %w", mapError(err))
	}
	return edge, nil
}

func getReferralEdge(ctx context.Context, q queryer, referrerId, referredId string) (*models.ReferralEdge, error) {
	edge, err := scanReferralEdge(q.QueryRowContext(ctx, queryGetReferralEdge, referrerId, referredId))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("referral %s -> %s: %w", referrerId, referredId, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query referral edge: %w", mapError(err))
	}
	return edge, nil
}

func scanReferralEdge(row rowScanner) (*models.ReferralEdge, error) {
	var edge models.ReferralEdge
	var paidAt sql.NullTime
	if err := row.Scan(&edge.ReferrerId, &edge.ReferredId, &edge.BonusPaid, &edge.CreatedAt, &paidAt); err != nil {
		return nil, err
	}
	if paidAt.Valid {
		at := paidAt.Time
		edge.PaidAt = &at
	}
	return &edge, nil
}
