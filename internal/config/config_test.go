package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskona-ledger-go/internal/money"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "taskona.db" {
		t.Errorf("Expected default database path, got %s", cfg.Database.Path)
	}
	if cfg.Database.TxTimeout != 5*time.Second {
		t.Errorf("Expected 5s tx timeout, got %v", cfg.Database.TxTimeout)
	}
	if cfg.Ledger.WelcomeBonus != money.FromNaira(1500) {
		t.Errorf("Expected welcome bonus 1500, got %s", cfg.Ledger.WelcomeBonus)
	}
	if cfg.Ledger.ReferralBonus != money.FromNaira(300) {
		t.Errorf("Expected referral bonus 300, got %s", cfg.Ledger.ReferralBonus)
	}
	if cfg.Ledger.WithdrawalMin != money.FromNaira(10000) || cfg.Ledger.WithdrawalMax != money.FromNaira(100000) {
		t.Errorf("Unexpected withdrawal limits %s..%s", cfg.Ledger.WithdrawalMin, cfg.Ledger.WithdrawalMax)
	}
	if cfg.Ledger.WithdrawalFee != money.FromNaira(50) {
		t.Errorf("Expected withdrawal fee 50, got %s", cfg.Ledger.WithdrawalFee)
	}
	if cfg.Ledger.Timezone != "Africa/Lagos" {
		t.Errorf("Expected Africa/Lagos, got %s", cfg.Ledger.Timezone)
	}
	if len(cfg.Ledger.StreakRewards) != 15 {
		t.Errorf("Expected 15 default streak rewards, got %d", len(cfg.Ledger.StreakRewards))
	}
	if !cfg.Ledger.RequireActivation {
		t.Error("Expected activation to be required by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	rewards := filepath.Join(t.TempDir(), "streaks.yaml")
	content := `rewards:
  - day: 1
    base_amount: 20
  - day: 2
    base_amount: 20
    bonus_amount: 80
    is_special: true
    description: Double day
`
	if err := os.WriteFile(rewards, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write rewards file: %v", err)
	}

	t.Setenv("DATABASE_PATH", "/tmp/ledger.db")
	t.Setenv("WITHDRAWAL_FEE", "49.50")
	t.Setenv("ACTIVATION_FEE_DEBIT", "true")
	t.Setenv("SWEEP_STALE_AFTER", "90s")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("STREAK_REWARDS_FILE", rewards)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Path != "/tmp/ledger.db" {
		t.Errorf("Expected overridden database path, got %s", cfg.Database.Path)
	}
	if cfg.Ledger.WithdrawalFee != money.FromKobo(4950) {
		t.Errorf("Expected fee 49.50, got %s", cfg.Ledger.WithdrawalFee)
	}
	if !cfg.Ledger.ActivationFeeDebit {
		t.Error("Expected activation fee debit to be enabled")
	}
	if cfg.Sweeper.StaleAfter != 90*time.Second {
		t.Errorf("Expected 90s stale threshold, got %v", cfg.Sweeper.StaleAfter)
	}
	if cfg.HTTP.RateLimitRPS != 2.5 {
		t.Errorf("Expected 2.5 rps, got %v", cfg.HTTP.RateLimitRPS)
	}
	if len(cfg.Ledger.StreakRewards) != 2 {
		t.Fatalf("Expected 2 streak rewards, got %d", len(cfg.Ledger.StreakRewards))
	}
	if got := cfg.Ledger.StreakRewards[1].Total(); got != money.FromNaira(100) {
		t.Errorf("Expected day 2 total 100, got %s", got)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"TX_TIMEOUT", "soon"},
		{"WELCOME_BONUS", "lots"},
		{"WITHDRAWAL_FEE", "0.001"},
		{"RATE_LIMIT_RPS", "fast"},
		{"STREAK_REWARDS_FILE", "/does/not/exist.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
