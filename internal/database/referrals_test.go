package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/store"
)

func TestCreateReferralEdge(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	createTestAccount(t, service, "alice")
	createTestAccount(t, service, "bob")
	createTestAccount(t, service, "carol")

	edge, err := service.CreateReferralEdge(ctx, "alice", "bob", now)
	if err != nil {
		t.Fatalf("CreateReferralEdge failed: %v", err)
	}
	if edge.BonusPaid != money.Zero || edge.PaidAt != nil {
		t.Errorf("Expected unpaid edge, got %+v", edge)
	}

	if _, err := service.CreateReferralEdge(ctx, "alice", "bob", now); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for repeated pair, got %v", err)
	}
	if _, err := service.CreateReferralEdge(ctx, "carol", "bob", now); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate for second referrer, got %v", err)
	}
	if _, err := service.CreateReferralEdge(ctx, "alice", "alice", now); !errors.Is(err, store.ErrConstraintViolation) {
		t.Errorf("Expected self referral to be rejected, got %v", err)
	}

	referrals, err := service.ListReferrals(ctx, "alice")
	if err != nil {
		t.Fatalf("ListReferrals failed: %v", err)
	}
	if len(referrals) != 1 || referrals[0].ReferredId != "bob" {
		t.Errorf("Expected bob as only referral, got %+v", referrals)
	}
}

func TestMarkReferralPaid_OnlyOnce(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	createTestAccount(t, service, "alice")
	createTestAccount(t, service, "bob")
	if _, err := service.CreateReferralEdge(ctx, "alice", "bob", now); err != nil {
		t.Fatalf("CreateReferralEdge failed: %v", err)
	}

	pay := func() error {
		return service.WithAccountLock(ctx, []string{"alice", "bob"}, func(ctx context.Context, tx store.Tx) error {
			return tx.MarkReferralPaid(ctx, "alice", "bob", money.FromNaira(300), now)
		})
	}
	if err := pay(); err != nil {
		t.Fatalf("MarkReferralPaid failed: %v", err)
	}
	if err := pay(); !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("Expected second payment to be refused, got %v", err)
	}

	edge, err := service.GetReferrer(ctx, "bob")
	if err != nil {
		t.Fatalf("GetReferrer failed: %v", err)
	}
	if edge.BonusPaid != money.FromNaira(300) || edge.PaidAt == nil {
		t.Errorf("Expected bonus 300.00 with paid_at, got %+v", edge)
	}
}

func TestSaveStreak_Upsert(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	createTestAccount(t, service, "user1")

	state, err := service.GetStreak(ctx, "user1")
	if err != nil {
		t.Fatalf("GetStreak failed: %v", err)
	}
	if state.CurrentStreak != 0 || state.LastClaimDate != "" {
		t.Fatalf("Expected empty streak, got %+v", state)
	}

	save := func(s models.StreakState) error {
		return service.WithAccountLock(ctx, []string{"user1"}, func(ctx context.Context, tx store.Tx) error {
			return tx.SaveStreak(ctx, s)
		})
	}

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := save(models.StreakState{UserId: "user1", CurrentStreak: 1, LongestStreak: 1, LastClaimDate: "2026-03-01", TotalClaimed: money.FromNaira(50), UpdatedAt: now}); err != nil {
		t.Fatalf("SaveStreak failed: %v", err)
	}
	if err := save(models.StreakState{UserId: "user1", CurrentStreak: 2, LongestStreak: 2, LastClaimDate: "2026-03-02", TotalClaimed: money.FromNaira(110), UpdatedAt: now}); err != nil {
		t.Fatalf("SaveStreak update failed: %v", err)
	}
	if err := save(models.StreakState{UserId: "user1", CurrentStreak: 3, LongestStreak: 2, UpdatedAt: now}); !errors.Is(err, store.ErrInvariantViolation) {
		t.Errorf("Expected longest < current to be rejected, got %v", err)
	}

	state, err = service.GetStreak(ctx, "user1")
	if err != nil {
		t.Fatalf("GetStreak failed: %v", err)
	}
	if state.CurrentStreak != 2 || state.LastClaimDate != "2026-03-02" || state.TotalClaimed != money.FromNaira(110) {
		t.Errorf("Unexpected streak state %+v", state)
	}
}

func TestWithdrawalStatusTransitions(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	createTestAccount(t, service, "user1")

	err := service.WithAccountLock(ctx, []string{"user1"}, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.CreateWithdrawal(ctx, store.CreateWithdrawalParams{
			Id:        "wd-1",
			UserId:    "user1",
			Amount:    money.FromNaira(2000),
			Fee:       money.FromNaira(50),
			Bank:      models.BankDetails{BankName: "GTBank", AccountNumber: "0123456789", AccountName: "Test User"},
			Reference: "key-1",
			EntryId:   "entry-1",
			CreatedAt: now,
		})
		return err
	})
	if err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}

	move := func(from []models.WithdrawalStatus, to models.WithdrawalStatus) error {
		return service.WithAccountLock(ctx, []string{"user1"}, func(ctx context.Context, tx store.Tx) error {
			return tx.UpdateWithdrawalStatus(ctx, "wd-1", from, to, now)
		})
	}
	open := []models.WithdrawalStatus{models.WithdrawalPending, models.WithdrawalProcessing}

	if err := move([]models.WithdrawalStatus{models.WithdrawalPending}, models.WithdrawalProcessing); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}
	if err := move(open, models.WithdrawalCompleted); err != nil {
		t.Fatalf("processing -> completed failed: %v", err)
	}
	if err := move(open, models.WithdrawalFailed); !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("Expected completed request to be final, got %v", err)
	}

	request, err := service.GetWithdrawal(ctx, "wd-1")
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if request.Status != models.WithdrawalCompleted || request.Bank.BankName != "GTBank" || request.Total() != money.FromNaira(2050) {
		t.Errorf("Unexpected withdrawal %+v", request)
	}

	listed, err := service.ListWithdrawals(ctx, store.WithdrawalFilter{Status: models.WithdrawalCompleted})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("Expected 1 completed withdrawal, got %d", len(listed))
	}
	listed, err = service.ListWithdrawals(ctx, store.WithdrawalFilter{UserId: "someone-else"})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(listed) != 0 {
		t.Errorf("Expected no withdrawals for another user, got %d", len(listed))
	}
}
