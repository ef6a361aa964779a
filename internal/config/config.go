/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"taskona-ledger-go/internal/common"
	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/money"
)

func Load() (*models.Config, error) {
	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	txTimeout, err := getEnvDuration("TX_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	ledger, err := loadLedgerPolicy()
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	staleAfter, err := getEnvDuration("SWEEP_STALE_AFTER", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	reconcileInterval, err := getEnvDuration("RECONCILE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}

	rateLimitRPS, err := getEnvFloat("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "taskona.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
			TxTimeout:       txTimeout,
		},
		Ledger: *ledger,
		HTTP: models.HTTPConfig{
			Addr:              getEnvString("HTTP_ADDR", ":8080"),
			JWTSecret:         os.Getenv("JWT_SECRET"),
			PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			ShutdownTimeout:   shutdownTimeout,
			RateLimitRPS:      rateLimitRPS,
			RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 10),
		},
		Sweeper: models.SweeperConfig{
			Interval:          sweepInterval,
			StaleAfter:        staleAfter,
			ReconcileInterval: reconcileInterval,
			BatchSize:         getEnvInt("SWEEP_BATCH_SIZE", 100),
		},
		Log: models.LogConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		},
	}, nil
}

// loadLedgerPolicy reads the business constants. Amounts are naira.
func loadLedgerPolicy() (*models.LedgerPolicy, error) {
	policy := &models.LedgerPolicy{
		ActivationFeeDebit: getEnvBool("ACTIVATION_FEE_DEBIT", false),
		RequireActivation:  getEnvBool("REQUIRE_ACTIVATION", true),
		AutoPayReferral:    getEnvBool("AUTO_PAY_REFERRAL", true),
		Timezone:           getEnvString("LEDGER_TIMEZONE", "Africa/Lagos"),
	}

	amounts := []struct {
		key          string
		defaultNaira int64
		target       *money.Money
	}{
		{"WELCOME_BONUS", 1500, &policy.WelcomeBonus},
		{"REFERRAL_BONUS", 300, &policy.ReferralBonus},
		{"ACTIVATION_FEE", 350, &policy.ActivationFee},
		{"WITHDRAWAL_MIN", 10000, &policy.WithdrawalMin},
		{"WITHDRAWAL_MAX", 100000, &policy.WithdrawalMax},
		{"WITHDRAWAL_FEE", 50, &policy.WithdrawalFee},
	}
	for _, amount := range amounts {
		value, err := getEnvMoney(amount.key, money.FromNaira(amount.defaultNaira))
		if err != nil {
			return nil, err
		}
		*amount.target = value
	}

	rewards, err := common.LoadStreakRewards(os.Getenv("STREAK_REWARDS_FILE"))
	if err != nil {
		return nil, fmt.Errorf("failed to load streak rewards: %w", err)
	}
	policy.StreakRewards = rewards

	return policy, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvMoney(key string, defaultValue money.Money) (money.Money, error) {
	if value := os.Getenv(key); value != "" {
		amount, err := money.ParseNaira(value)
		if err != nil {
			return 0, fmt.Errorf("invalid amount for %s: %q (%w)", key, value, err)
		}
		return amount, nil
	}
	return defaultValue, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return f, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
