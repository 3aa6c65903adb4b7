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
	"strings"
	"time"

	"staking-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

type durationSetting struct {
	key          string
	defaultValue time.Duration
	target       *time.Duration
}

func Load() (*models.Config, error) {
	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "staking.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 1),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 1),
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Server: models.ServerConfig{
			Addr:           getEnvString("HTTP_ADDR", ":8080"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		Auth: models.AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			JWTIssuer:      os.Getenv("JWT_ISSUER"),
			AdminSecretKey: os.Getenv("ADMIN_SECRET_KEY"),
		},
		Scheduler: models.SchedulerConfig{
			Enabled: getEnvBool("SCHEDULER_ENABLED", true),
		},
		Formance: models.FormanceConfig{
			StackURL:     os.Getenv("FORMANCE_STACK_URL"),
			ClientID:     os.Getenv("FORMANCE_CLIENT_ID"),
			ClientSecret: os.Getenv("FORMANCE_CLIENT_SECRET"),
			LedgerName:   getEnvString("FORMANCE_LEDGER", "staking-ledger"),
		},
		Prime: models.PrimeConfig{
			AccessKey:   os.Getenv("PRIME_ACCESS_KEY"),
			Passphrase:  os.Getenv("PRIME_PASSPHRASE"),
			SigningKey:  os.Getenv("PRIME_SIGNING_KEY"),
			PortfolioId: os.Getenv("PRIME_PORTFOLIO_ID"),
		},
		AssetsFile: getEnvString("ASSETS_FILE", "assets.yaml"),
		PricesFile: getEnvString("PRICES_FILE", "prices.yaml"),
	}

	durations := []durationSetting{
		{"DB_CONN_MAX_LIFETIME", 5 * time.Minute, &cfg.Database.ConnMaxLifetime},
		{"DB_CONN_MAX_IDLE_TIME", 30 * time.Second, &cfg.Database.ConnMaxIdleTime},
		{"DB_PING_TIMEOUT", 5 * time.Second, &cfg.Database.PingTimeout},
		{"DB_BUSY_TIMEOUT", 5 * time.Second, &cfg.Database.BusyTimeout},
		{"HTTP_READ_TIMEOUT", 15 * time.Second, &cfg.Server.ReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.Server.WriteTimeout},
		{"HTTP_SHUTDOWN_TIMEOUT", 10 * time.Second, &cfg.Server.ShutdownTimeout},
		{"REWARD_ACCRUAL_INTERVAL", 5 * time.Minute, &cfg.Scheduler.RewardAccrualInterval},
		{"CONDITION_SWEEP_INTERVAL", 15 * time.Minute, &cfg.Scheduler.ConditionSweepInterval},
		{"PAYOUT_INTERVAL", time.Minute, &cfg.Scheduler.PayoutInterval},
		{"CONDITION_MIN_ACCOUNT_AGE", 30 * 24 * time.Hour, &cfg.Conditions.MinAccountAge},
	}
	for _, d := range durations {
		value, err := getEnvDuration(d.key, d.defaultValue)
		if err != nil {
			return nil, err
		}
		*d.target = value
	}

	minStake, err := getEnvDecimal("CONDITION_MIN_STAKE_USD", decimal.NewFromInt(100))
	if err != nil {
		return nil, err
	}
	minDeposits, err := getEnvDecimal("CONDITION_MIN_DEPOSITS_USD", decimal.NewFromInt(500))
	if err != nil {
		return nil, err
	}
	cfg.Conditions.MinStakeUSD = minStake
	cfg.Conditions.MinDepositsUSD = minDeposits

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items
func getEnvList(key string) []string {
	var items []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
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

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	if value := os.Getenv(key); value != "" {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q (%w)", key, value, err)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("invalid decimal for %s: %q must not be negative", key, value)
		}
		return d, nil
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
