package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/store"
)

func claim(t *testing.T, service *Service, key, op, fingerprint string, now time.Time) store.ClaimOutcome {
	t.Helper()
	outcome, err := service.ClaimIdempotencyKey(context.Background(), store.ClaimKeyParams{
		Key:         key,
		Operation:   op,
		Fingerprint: fingerprint,
		AccountId:   "user1",
		Now:         now,
	})
	if err != nil {
		t.Fatalf("ClaimIdempotencyKey(%s) failed: %v", key, err)
	}
	return outcome
}

func TestClaimIdempotencyKey_Lifecycle(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	createTestAccount(t, service, "user1")
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := claim(t, service, "ref-1", "top_up", "fp", now)
	if !first.Claimed || first.Record.Status != models.KeyPending {
		t.Fatalf("Expected fresh claim, got %+v", first)
	}

	// A second caller sees the pending record and does not own it.
	second := claim(t, service, "ref-1", "top_up", "fp", now)
	if second.Claimed || second.Record.Status != models.KeyPending {
		t.Fatalf("Expected unclaimed pending record, got %+v", second)
	}

	err := service.WithAccountLock(ctx, []string{"user1"}, func(ctx context.Context, tx store.Tx) error {
		return tx.CompleteIdempotencyKey(ctx, "ref-1", []byte(`{"ok":true}`), now)
	})
	if err != nil {
		t.Fatalf("CompleteIdempotencyKey failed: %v", err)
	}

	third := claim(t, service, "ref-1", "top_up", "fp", now)
	if third.Claimed || third.Record.Status != models.KeyCompleted {
		t.Fatalf("Expected completed record, got %+v", third)
	}
	if string(third.Record.Result) != `{"ok":true}` {
		t.Errorf("Expected stored result, got %q", third.Record.Result)
	}

	// Completing twice is a constraint violation.
	err = service.WithAccountLock(ctx, []string{"user1"}, func(ctx context.Context, tx store.Tx) error {
		return tx.CompleteIdempotencyKey(ctx, "ref-1", nil, now)
	})
	if !errors.Is(err, store.ErrConstraintViolation) {
		t.Errorf("Expected ErrConstraintViolation, got %v", err)
	}
}

func TestClaimIdempotencyKey_ReclaimFailed(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	claim(t, service, "w-1", "request_withdrawal", "fp-a", now)
	if err := service.FailIdempotencyKey(ctx, "w-1", "insufficient_balance", now); err != nil {
		t.Fatalf("FailIdempotencyKey failed: %v", err)
	}

	record, err := service.GetIdempotencyRecord(ctx, "w-1")
	if err != nil {
		t.Fatalf("GetIdempotencyRecord failed: %v", err)
	}
	if record.Status != models.KeyFailed || record.ErrorCode != "insufficient_balance" {
		t.Fatalf("Expected failed record, got %+v", record)
	}

	// Different fingerprint is not reclaimed.
	other := claim(t, service, "w-1", "request_withdrawal", "fp-b", now)
	if other.Claimed {
		t.Fatalf("Expected mismatched fingerprint not to reclaim")
	}

	again := claim(t, service, "w-1", "request_withdrawal", "fp-a", now.Add(time.Minute))
	if !again.Claimed || again.Record.Attempts != 2 || again.Record.ErrorCode != "" {
		t.Fatalf("Expected reclaim with attempts=2, got %+v", again.Record)
	}
}

func TestListStalePendingKeys(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	claim(t, service, "old", "top_up", "", base)
	claim(t, service, "new", "top_up", "", base.Add(10*time.Minute))

	stale, err := service.ListStalePendingKeys(ctx, base.Add(5*time.Minute), 10)
	if err != nil {
		t.Fatalf("ListStalePendingKeys failed: %v", err)
	}
	if len(stale) != 1 || stale[0].Key != "old" {
		t.Fatalf("Expected only the old key, got %+v", stale)
	}

	if err := service.ResolveIdempotencyKey(ctx, "old", models.KeyFailed, "abandoned", base.Add(6*time.Minute)); err != nil {
		t.Fatalf("ResolveIdempotencyKey failed: %v", err)
	}
	if err := service.ResolveIdempotencyKey(ctx, "old", models.KeyCompleted, "", base.Add(7*time.Minute)); !errors.Is(err, store.ErrConcurrentModification) {
		t.Errorf("Expected resolving a non-pending key to fail, got %v", err)
	}
	if err := service.ResolveIdempotencyKey(ctx, "new", models.KeyPending, "", base); !errors.Is(err, store.ErrInvariantViolation) {
		t.Errorf("Expected resolving to pending to be rejected, got %v", err)
	}
}
