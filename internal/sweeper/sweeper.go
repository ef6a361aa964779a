// Package sweeper runs the periodic jobs that keep the ledger consistent:
// resolving idempotency keys orphaned by crashed requests and reconciling
// stored balances against their entries.
package sweeper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskona-ledger-go/internal/settlement"
	"taskona-ledger-go/internal/store"

	"go.uber.org/zap"
)

// Ledger is the part of the settlement engine the sweeper drives.
type Ledger interface {
	SweepPending(ctx context.Context, staleAfter time.Duration, limit int) (settlement.SweepReport, error)
	ReconcileAll(ctx context.Context) ([]store.Reconciliation, error)
}

// Config contains configuration for Sweeper
type Config struct {
	Ledger            Ledger
	Interval          time.Duration
	StaleAfter        time.Duration
	ReconcileInterval time.Duration
	BatchSize         int
}

type Sweeper struct {
	ledger            Ledger
	interval          time.Duration
	staleAfter        time.Duration
	reconcileInterval time.Duration
	batchSize         int

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func New(cfg Config) (*Sweeper, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive, got %v", cfg.Interval)
	}
	if cfg.StaleAfter <= 0 {
		return nil, fmt.Errorf("stale threshold must be positive, got %v", cfg.StaleAfter)
	}
	return &Sweeper{
		ledger:            cfg.Ledger,
		interval:          cfg.Interval,
		staleAfter:        cfg.StaleAfter,
		reconcileInterval: cfg.ReconcileInterval,
		batchSize:         cfg.BatchSize,
		stopChan:          make(chan struct{}),
	}, nil
}

// Start runs one sweep immediately to recover keys orphaned while the process
// was down, then keeps sweeping in the background until Stop or ctx is done.
func (s *Sweeper) Start(ctx context.Context) error {
	zap.L().Info("Starting sweeper")

	if _, err := s.SweepOnce(ctx); err != nil {
		return fmt.Errorf("startup sweep failed: %w", err)
	}

	s.wg.Add(1)
	go s.loop(ctx, s.interval, func(ctx context.Context) {
		if _, err := s.SweepOnce(ctx); err != nil {
			zap.L().Error("Sweep failed", zap.Error(err))
		}
	})

	if s.reconcileInterval > 0 {
		s.wg.Add(1)
		go s.loop(ctx, s.reconcileInterval, func(ctx context.Context) {
			if _, err := s.ReconcileOnce(ctx); err != nil {
				zap.L().Error("Reconciliation failed", zap.Error(err))
			}
		})
	}

	zap.L().Info("Sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("stale_after", s.staleAfter),
		zap.Duration("reconcile_interval", s.reconcileInterval))
	return nil
}

// Stop signals the loops and waits for the current pass to finish.
func (s *Sweeper) Stop() {
	zap.L().Info("Stopping sweeper")
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	zap.L().Info("Sweeper stopped")
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, run func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce resolves one batch of stale pending keys.
func (s *Sweeper) SweepOnce(ctx context.Context) (settlement.SweepReport, error) {
	report, err := s.ledger.SweepPending(ctx, s.staleAfter, s.batchSize)
	if err != nil {
		return report, err
	}
	if report.Scanned > 0 {
		zap.L().Info("Swept stale idempotency keys",
			zap.Int("scanned", report.Scanned),
			zap.Int("completed", report.Completed),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped))
	}
	return report, nil
}

// ReconcileOnce checks every account and logs those whose balance drifted.
func (s *Sweeper) ReconcileOnce(ctx context.Context) ([]store.Reconciliation, error) {
	mismatched, err := s.ledger.ReconcileAll(ctx)
	if err != nil {
		return mismatched, err
	}
	for _, rec := range mismatched {
		zap.L().Error("Account balance drifted from its entries",
			zap.String("user_id", rec.AccountId),
			zap.String("stored_balance", rec.StoredBalance.String()),
			zap.String("entry_sum", rec.EntrySum.String()))
	}
	return mismatched, nil
}
