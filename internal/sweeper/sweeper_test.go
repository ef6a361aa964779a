package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"taskona-ledger-go/internal/money"
	"taskona-ledger-go/internal/settlement"
	"taskona-ledger-go/internal/store"
)

type fakeLedger struct {
	mu         sync.Mutex
	sweeps     int
	reconciles int
	sweepErr   error
	mismatched []store.Reconciliation
}

func (f *fakeLedger) SweepPending(ctx context.Context, staleAfter time.Duration, limit int) (settlement.SweepReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweeps++
	if f.sweepErr != nil {
		return settlement.SweepReport{}, f.sweepErr
	}
	return settlement.SweepReport{Scanned: 1, Failed: 1}, nil
}

func (f *fakeLedger) ReconcileAll(ctx context.Context) ([]store.Reconciliation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciles++
	return f.mismatched, nil
}

func (f *fakeLedger) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps, f.reconciles
}

func TestNew_ValidatesConfig(t *testing.T) {
	if _, err := New(Config{Interval: time.Second, StaleAfter: time.Second}); err == nil {
		t.Error("Expected error without a ledger")
	}
	if _, err := New(Config{Ledger: &fakeLedger{}, StaleAfter: time.Second}); err == nil {
		t.Error("Expected error for zero interval")
	}
	if _, err := New(Config{Ledger: &fakeLedger{}, Interval: time.Second}); err == nil {
		t.Error("Expected error for zero stale threshold")
	}
}

func TestStart_SweepsImmediatelyAndOnTicks(t *testing.T) {
	ledger := &fakeLedger{}
	s, err := New(Config{
		Ledger:            ledger,
		Interval:          10 * time.Millisecond,
		StaleAfter:        time.Minute,
		ReconcileInterval: 10 * time.Millisecond,
		BatchSize:         10,
	})
	if err != nil {
		t.Fatalf("Failed to create sweeper: %v", err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Failed to start sweeper: %v", err)
	}
	if sweeps, _ := ledger.counts(); sweeps < 1 {
		t.Fatalf("Expected a startup sweep, got %d", sweeps)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		sweeps, reconciles := ledger.counts()
		if sweeps >= 3 && reconciles >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Loops did not run: sweeps=%d reconciles=%d", sweeps, reconciles)
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Stop()
	sweeps, _ := ledger.counts()
	time.Sleep(30 * time.Millisecond)
	if after, _ := ledger.counts(); after != sweeps {
		t.Errorf("Sweeper kept running after Stop: %d -> %d", sweeps, after)
	}

	// Stop is idempotent.
	s.Stop()
}

func TestStart_FailsWhenStartupSweepFails(t *testing.T) {
	ledger := &fakeLedger{sweepErr: errors.New("database is locked")}
	s, err := New(Config{Ledger: ledger, Interval: time.Second, StaleAfter: time.Minute})
	if err != nil {
		t.Fatalf("Failed to create sweeper: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Expected startup sweep failure")
	}
}

func TestReconcileOnce_ReturnsMismatches(t *testing.T) {
	ledger := &fakeLedger{mismatched: []store.Reconciliation{
		{AccountId: "alice", StoredBalance: money.FromNaira(10), EntrySum: money.FromNaira(5)},
	}}
	s, err := New(Config{Ledger: ledger, Interval: time.Second, StaleAfter: time.Minute})
	if err != nil {
		t.Fatalf("Failed to create sweeper: %v", err)
	}

	mismatched, err := s.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(mismatched) != 1 || mismatched[0].AccountId != "alice" {
		t.Errorf("Expected alice to be reported, got %+v", mismatched)
	}
}
