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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"staking-ledger-go/internal/common"
	"staking-ledger-go/internal/config"
	"staking-ledger-go/internal/scheduler"
	"staking-ledger-go/internal/server"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := run(); err != nil {
		zap.L().Fatal("Staking ledger stopped with error", zap.Error(err))
	}
	zap.L().Info("Staking ledger stopped gracefully")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if cfg.Auth.AdminSecretKey == "" {
		zap.L().Warn("ADMIN_SECRET_KEY is not set, job endpoints only accept access tokens or nothing")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zap.L().Info("Starting staking ledger")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	g, gctx := errgroup.WithContext(ctx)

	srv := server.New(services.Ledger, cfg.Server, cfg.Auth)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(services.Ledger, cfg.Scheduler)
		g.Go(func() error {
			return sched.Run(gctx)
		})
	} else {
		zap.L().Info("In-process scheduler disabled, use the /v1/jobs endpoints")
	}

	zap.L().Info("Press Ctrl+C to stop")
	return g.Wait()
}
