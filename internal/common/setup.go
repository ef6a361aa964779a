package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"taskona-ledger-go/internal/database"
	"taskona-ledger-go/internal/models"
	"taskona-ledger-go/internal/settlement"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Engine    *settlement.Engine
	Registry  *prometheus.Registry
}

// InitializeLogger installs the global zap logger. With cfg.File set, output
// also goes to a size-rotated file.
func InitializeLogger(cfg models.LogConfig) (*zap.Logger, func()) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			log.Printf("Unknown log level %q, using info\n", cfg.Level)
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)}
	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
		if rotator != nil {
			if err := rotator.Close(); err != nil {
				log.Printf("Failed to close log file: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the ledger database and builds the settlement engine on top of it.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := settlement.NewEngine(dbService, cfg.Ledger, settlement.WithMetrics(settlement.NewMetrics(registry)))
	if err != nil {
		dbService.Close()
		return nil, fmt.Errorf("invalid ledger policy: %w", err)
	}

	zap.L().Info("Ledger policy loaded",
		zap.String("welcome_bonus", cfg.Ledger.WelcomeBonus.String()),
		zap.String("referral_bonus", cfg.Ledger.ReferralBonus.String()),
		zap.String("activation_fee", cfg.Ledger.ActivationFee.String()),
		zap.Bool("activation_fee_debit", cfg.Ledger.ActivationFeeDebit),
		zap.String("withdrawal_min", cfg.Ledger.WithdrawalMin.String()),
		zap.String("withdrawal_max", cfg.Ledger.WithdrawalMax.String()),
		zap.String("withdrawal_fee", cfg.Ledger.WithdrawalFee.String()),
		zap.Int("streak_days", len(cfg.Ledger.StreakRewards)),
		zap.String("timezone", cfg.Ledger.Timezone))

	return &Services{
		DbService: dbService,
		Engine:    engine,
		Registry:  registry,
	}, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
