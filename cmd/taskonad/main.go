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

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"taskona-ledger-go/internal/api"
	"taskona-ledger-go/internal/common"
	"taskona-ledger-go/internal/config"
	"taskona-ledger-go/internal/sweeper"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// installStartupLogger replaces the global no-op logger so failures before
// the configured logger exists are still reported.
func installStartupLogger() func() {
	return zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
}

func main() {
	installStartupLogger()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting Taskona ledger service", zap.String("addr", cfg.HTTP.Addr))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	auth, err := api.NewAuthenticator(cfg.HTTP.JWTSecret, 0)
	if err != nil {
		zap.L().Fatal("Failed to configure authentication", zap.Error(err))
	}
	ledgerService, err := api.NewLedgerService(api.Config{
		Engine:         services.Engine,
		DB:             services.DbService,
		Auth:           auth,
		Limiter:        api.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst),
		PaystackSecret: cfg.HTTP.PaystackSecretKey,
		Gatherer:       services.Registry,
	})
	if err != nil {
		zap.L().Fatal("Failed to configure API", zap.Error(err))
	}

	sw, err := sweeper.New(sweeper.Config{
		Ledger:            services.Engine,
		Interval:          cfg.Sweeper.Interval,
		StaleAfter:        cfg.Sweeper.StaleAfter,
		ReconcileInterval: cfg.Sweeper.ReconcileInterval,
		BatchSize:         cfg.Sweeper.BatchSize,
	})
	if err != nil {
		zap.L().Fatal("Failed to configure sweeper", zap.Error(err))
	}
	if err := sw.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start sweeper", zap.Error(err))
	}
	defer sw.Stop()

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      ledgerService.Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.Serve(gctx, srv, cfg.HTTP.ShutdownTimeout)
	})
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("Shutdown signal received, stopping sweeper...")
		sw.Stop()
		return nil
	})

	zap.L().Info("Taskona ledger service running. Press Ctrl+C to stop")
	if err := g.Wait(); err != nil {
		zap.L().Error("Server stopped with error", zap.Error(err))
		return
	}
	zap.L().Info("Taskona ledger service stopped gracefully")
}
