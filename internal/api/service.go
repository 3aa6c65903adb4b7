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

package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staking-ledger-go/internal/metrics"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PriceFeed converts currencies to USD for condition checks
type PriceFeed interface {
	USDPrice(ctx context.Context, currency string) (decimal.Decimal, error)
}

// Journal receives every committed ledger entry
type Journal interface {
	Record(ctx context.Context, entry models.LedgerEntry) error
}

// PayoutSender moves a completed withdrawal on-chain and returns the
// provider's activity id. The withdrawal id doubles as the idempotency key.
type PayoutSender interface {
	SendPayout(ctx context.Context, withdrawal models.Withdrawal) (string, error)
}

// LedgerService implements the deposit, stake, reward and withdrawal workflows
// on top of a LedgerStore.
type LedgerService struct {
	store      store.LedgerStore
	assets     models.AssetSet
	prices     PriceFeed
	thresholds models.ConditionsConfig
	journal    Journal
	payouts    PayoutSender
	now        func() time.Time

	conditions *ConditionEvaluator
}

type Option func(*LedgerService)

// WithClock replaces the wall clock, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		s.now = now
	}
}

func WithJournal(journal Journal) Option {
	return func(s *LedgerService) {
		s.journal = journal
	}
}

func WithPayoutSender(sender PayoutSender) Option {
	return func(s *LedgerService) {
		s.payouts = sender
	}
}

func WithConditionThresholds(cfg models.ConditionsConfig) Option {
	return func(s *LedgerService) {
		s.thresholds = cfg
	}
}

func NewLedgerService(db store.LedgerStore, assets models.AssetSet, prices PriceFeed, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:      db,
		assets:     assets,
		prices:     prices,
		thresholds: DefaultConditionThresholds(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.conditions = NewConditionEvaluator(db, prices, s.thresholds, s.now)
	return s
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Conditions exposes the evaluator used for withdrawal gating
func (s *LedgerService) Conditions() *ConditionEvaluator {
	return s.conditions
}

func (s *LedgerService) EnsureUser(ctx context.Context, userId, email string) error {
	return s.store.EnsureUser(ctx, userId, email)
}

func (s *LedgerService) currency(symbol string) (string, error) {
	asset, ok := s.assets.Lookup(symbol)
	if !ok {
		return "", fmt.Errorf("%w: unsupported currency %q", store.ErrInvalidInput, symbol)
	}
	return asset.Symbol, nil
}

func requireUser(userId string) error {
	if strings.TrimSpace(userId) == "" {
		return fmt.Errorf("%w: user id is required", store.ErrInvalidInput)
	}
	return nil
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return store.ErrInvalidAmount
	}
	return nil
}

// mirror forwards a committed entry to the journal. Failures never reach the
// caller since the local store is authoritative.
func (s *LedgerService) mirror(ctx context.Context, entry *models.LedgerEntry) {
	if s.journal == nil || entry == nil {
		return
	}
	if err := s.journal.Record(ctx, *entry); err != nil {
		metrics.JournalFailure()
		zap.L().Warn("Failed to mirror ledger entry",
			zap.String("entry_id", entry.Id),
			zap.String("entry_type", entry.EntryType),
			zap.String("reference", entry.Reference),
			zap.Error(err))
	}
}

// compensate undoes the first step of a two-step mutation after the second
// step failed. The rollback runs on a context detached from cancellation so
// an aborted request still gets its compensation.
func compensate(ctx context.Context, op string, cause error, rollback func(context.Context) error, fields ...zap.Field) error {
	rbErr := rollback(context.WithoutCancel(ctx))
	metrics.Rollback(op, rbErr != nil)

	fields = append(fields, zap.String("op", op), zap.Error(cause))
	if rbErr != nil {
		zap.L().Error("Rollback failed, manual reconciliation required",
			append(fields, zap.NamedError("rollback_error", rbErr), zap.Bool("reconciliation_required", true))...)
	} else {
		zap.L().Warn("Operation rolled back", fields...)
	}
	return &store.PartialFailureError{Op: op, Cause: cause, RollbackErr: rbErr}
}
