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

// Package api exposes the settlement engine over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskona-ledger-go/internal/settlement"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	requestTimeout     = 30 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// Pinger reports whether the ledger database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config wires the HTTP server to the ledger
type Config struct {
	Engine         *settlement.Engine
	DB             Pinger
	Auth           *Authenticator
	Limiter        *RateLimiter
	PaystackSecret string
	Gatherer       prometheus.Gatherer
}

// LedgerService serves the Taskona ledger API
type LedgerService struct {
	engine         *settlement.Engine
	db             Pinger
	auth           *Authenticator
	limiter        *RateLimiter
	paystackSecret []byte
	gatherer       prometheus.Gatherer
}

func NewLedgerService(cfg Config) (*LedgerService, error) {
	if cfg.Engine == nil {
		return nil, errors.New("settlement engine is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if cfg.PaystackSecret == "" {
		return nil, errors.New("paystack secret key is required")
	}
	return &LedgerService{
		engine:         cfg.Engine,
		db:             cfg.DB,
		auth:           cfg.Auth,
		limiter:        cfg.Limiter,
		paystackSecret: []byte(cfg.PaystackSecret),
		gatherer:       cfg.Gatherer,
	}, nil
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Handler returns the chi router with all routes mounted.
func (s *LedgerService) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/webhooks/paystack", s.handlePaystackWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)
			if s.limiter != nil {
				r.Use(s.limiter.Middleware)
			}

			r.Post("/accounts", s.handleRegister)
			r.Get("/accounts/me", s.handleAccount)
			r.Get("/accounts/me/entries", s.handleEntries)
			r.Get("/referrals", s.handleReferrals)

			r.Get("/streak", s.handleStreak)
			r.Post("/streak/claim", s.handleClaimStreak)

			r.Post("/withdrawals", s.handleRequestWithdrawal)
			r.Get("/withdrawals", s.handleListOwnWithdrawals)
			r.Get("/withdrawals/{id}", s.handleGetOwnWithdrawal)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/withdrawals", s.handleListWithdrawals)
				r.Post("/withdrawals/{id}/approve", s.handleApproveWithdrawal)
				r.Post("/withdrawals/{id}/reject", s.handleRejectWithdrawal)
				r.Post("/withdrawals/{id}/processing", s.handleMarkProcessing)
				r.Post("/referrals/payout", s.handlePayReferral)
				r.Post("/tasks/rewards", s.handlePayTaskReward)
				r.Get("/accounts/{id}/reconcile", s.handleReconcile)
			})
		})
	})

	return r
}

func (s *LedgerService) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	if err := s.HealthCheck(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Serve runs srv until ctx is cancelled, then drains in-flight requests.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
