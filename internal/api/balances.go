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

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"go.uber.org/zap"
)

func (s *LedgerService) GetBalances(ctx context.Context, userId string) ([]models.Balance, error) {
	zap.L().Debug("Getting balances", zap.String("user_id", userId))

	balances, err := s.store.GetAllBalances(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	return balances, nil
}

// GetBalance returns a zero balance for currencies the user never held
func (s *LedgerService) GetBalance(ctx context.Context, userId, currency string) (*models.Balance, error) {
	symbol, err := s.currency(currency)
	if err != nil {
		return nil, err
	}
	balance, err := s.store.GetBalance(ctx, userId, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (s *LedgerService) GetLedgerHistory(ctx context.Context, userId, currency string, limit, offset int) ([]models.LedgerEntry, error) {
	symbol, err := s.currency(currency)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListLedgerEntries(ctx, userId, symbol, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	return entries, nil
}

// AdjustBalance overwrites any subset of a user's pools. The override is
// recorded as an admin_adjustment ledger entry.
func (s *LedgerService) AdjustBalance(ctx context.Context, adminId, userId, currency string, req models.AdjustBalanceRequest) (*models.Balance, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}
	symbol, err := s.currency(currency)
	if err != nil {
		return nil, err
	}

	entry, err := s.store.SetBalance(ctx, store.SetBalanceParams{
		UserId:       userId,
		Currency:     symbol,
		Available:    req.Available,
		Staked:       req.Staked,
		TotalRewards: req.TotalRewards,
		Reference:    "admin:" + adminId,
	})
	if err != nil {
		return nil, err
	}
	s.mirror(ctx, entry)

	zap.L().Info("Balance adjusted by admin",
		zap.String("admin_id", adminId),
		zap.String("user_id", userId),
		zap.String("currency", symbol),
		zap.String("available", entry.AvailableAfter.String()),
		zap.String("staked", entry.StakedAfter.String()),
		zap.String("total_rewards", entry.RewardsAfter.String()))

	return s.store.GetBalance(ctx, userId, symbol)
}
