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
	"fmt"
	"os"

	"taskona-ledger-go/internal/common"
	"taskona-ledger-go/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every subcommand needs once the root command has run.
var app struct {
	services *common.Services
	logger   *zap.Logger
	cleanup  func()
}

var rootCmd = &cobra.Command{
	Use:           "taskonactl",
	Short:         "Operate the Taskona balance ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		app.logger, app.cleanup = common.InitializeLogger(cfg.Log)

		app.logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
		app.services, err = common.InitializeServices(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeApp()
	},
}

func closeApp() {
	if app.services != nil {
		app.services.Close()
		app.services = nil
	}
	if app.cleanup != nil {
		app.cleanup()
		app.cleanup = nil
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		closeApp()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
