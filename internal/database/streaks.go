package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskona-ledger-go/internal/models"
)

// GetStreak returns the user's streak state. A user who never claimed gets a zero state.
func (s *Service) GetStreak(ctx context.Context, userId string) (*models.StreakState, error) {
	return getStreak(ctx, s.db, userId)
}

func getStreak(ctx context.Context, q queryer, userId string) (*models.StreakState, error) {
	var state models.StreakState
	err := q.QueryRowContext(ctx, queryGetStreak, userId).Scan(
		&state.UserId, &state.CurrentStreak, &state.LongestStreak, &state.LastClaimDate, &state.TotalClaimed, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.StreakState{UserId: userId}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query streak: %w", mapError(err))
	}
	return &state, nil
}
