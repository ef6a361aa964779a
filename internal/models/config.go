package models

import (
	"time"

	"taskona-ledger-go/internal/money"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Ledger   LedgerPolicy
	HTTP     HTTPConfig
	Sweeper  SweeperConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// TxTimeout bounds lock acquisition plus the transaction that follows it.
	TxTimeout time.Duration
}

// StreakReward is one row of the daily streak reward table
type StreakReward struct {
	Day         int         `json:"day"`
	BaseAmount  money.Money `json:"base_amount"`
	BonusAmount money.Money `json:"bonus_amount"`
	IsSpecial   bool        `json:"is_special"`
	Description string      `json:"description"`
}

// Total is the amount credited for the day.
func (r StreakReward) Total() money.Money {
	return r.BaseAmount.Add(r.BonusAmount)
}

// LedgerPolicy is the single source of truth for business constants
type LedgerPolicy struct {
	WelcomeBonus       money.Money
	ReferralBonus      money.Money
	ActivationFee      money.Money
	ActivationFeeDebit bool
	WithdrawalMin      money.Money
	WithdrawalMax      money.Money
	WithdrawalFee      money.Money
	RequireActivation  bool
	AutoPayReferral    bool
	Timezone           string
	StreakRewards      []StreakReward
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Addr              string
	JWTSecret         string
	PaystackSecretKey string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	RateLimitRPS      float64
	RateLimitBurst    int
}

// SweeperConfig holds the pending key sweep settings
type SweeperConfig struct {
	Interval          time.Duration
	StaleAfter        time.Duration
	ReconcileInterval time.Duration
	BatchSize         int
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}
