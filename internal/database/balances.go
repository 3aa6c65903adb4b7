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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanBalance(row interface{ Scan(...any) error }) (*models.Balance, error) {
	var b models.Balance
	err := row.Scan(&b.Id, &b.UserId, &b.Currency, &b.Available, &b.Staked, &b.TotalRewards, &b.Version, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBalance returns the balance for a user and currency. A missing row
// reads as zero in every pool.
func (s *Service) GetBalance(ctx context.Context, userId, currency string) (*models.Balance, error) {
	balance, err := scanBalance(s.db.QueryRowContext(ctx, queryGetBalance, userId, currency))
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Balance{
			UserId:       userId,
			Currency:     currency,
			Available:    decimal.Zero,
			Staked:       decimal.Zero,
			TotalRewards: decimal.Zero,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (s *Service) GetAllBalances(ctx context.Context, userId string) ([]models.Balance, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAllBalances, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer closeRows(rows)

	var balances []models.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, *b)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return balances, nil
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", store.ErrInvalidAmount, amount.String())
	}
	return nil
}

// Credit adds amount to the available pool
func (s *Service) Credit(ctx context.Context, params store.BalanceParams) (*models.LedgerEntry, error) {
	if err := requirePositive(params.Amount); err != nil {
		return nil, err
	}
	return s.applyBalanceChange(ctx, balanceChangeParams{
		UserId:    params.UserId,
		Currency:  params.Currency,
		EntryType: models.EntryCredit,
		Reference: params.Reference,
		Change: func(b *models.Balance) error {
			b.Available = b.Available.Add(params.Amount)
			return nil
		},
	})
}

// Debit removes amount from the available pool
func (s *Service) Debit(ctx context.Context, params store.BalanceParams) (*models.LedgerEntry, error) {
	if err := requirePositive(params.Amount); err != nil {
		return nil, err
	}
	return s.applyBalanceChange(ctx, balanceChangeParams{
		UserId:    params.UserId,
		Currency:  params.Currency,
		EntryType: models.EntryDebit,
		Reference: params.Reference,
		Change: func(b *models.Balance) error {
			if b.Available.LessThan(params.Amount) {
				return fmt.Errorf("%w: available %s, requested %s", store.ErrInsufficientFunds, b.Available.String(), params.Amount.String())
			}
			b.Available = b.Available.Sub(params.Amount)
			return nil
		},
	})
}

// DebitRewards removes amount from the rewards pool
func (s *Service) DebitRewards(ctx context.Context, params store.BalanceParams) (*models.LedgerEntry, error) {
	if err := requirePositive(params.Amount); err != nil {
		return nil, err
	}
	return s.applyBalanceChange(ctx, balanceChangeParams{
		UserId:    params.UserId,
		Currency:  params.Currency,
		EntryType: models.EntryDebitRewards,
		Reference: params.Reference,
		Change: func(b *models.Balance) error {
			if b.TotalRewards.LessThan(params.Amount) {
				return fmt.Errorf("%w: rewards %s, requested %s", store.ErrInsufficientFunds, b.TotalRewards.String(), params.Amount.String())
			}
			b.TotalRewards = b.TotalRewards.Sub(params.Amount)
			return nil
		},
	})
}

// MoveToStake reserves amount from available into staked
func (s *Service) MoveToStake(ctx context.Context, params store.BalanceParams) (*models.LedgerEntry, error) {
	if err := requirePositive(params.Amount); err != nil {
		return nil, err
	}
	return s.applyBalanceChange(ctx, balanceChangeParams{
		UserId:    params.UserId,
		Currency:  params.Currency,
		EntryType: models.EntryStake,
		Reference: params.Reference,
		Change: func(b *models.Balance) error {
			if b.Available.LessThan(params.Amount) {
				return fmt.Errorf("%w: available %s, requested %s", store.ErrInsufficientFunds, b.Available.String(), params.Amount.String())
			}
			b.Available = b.Available.Sub(params.Amount)
			b.Staked = b.Staked.Add(params.Amount)
			return nil
		},
	})
}

// ReleaseStake returns stake principal to available. The stake record is
// authoritative, so the full amount is credited even if the staked pool
// holds less; staked is clamped at zero.
func (s *Service) ReleaseStake(ctx context.Context, params store.BalanceParams) (*models.LedgerEntry, error) {
	if err := requirePositive(params.Amount); err != nil {
		return nil, err
	}
	return s.applyBalanceChange(ctx, balanceChangeParams{
		UserId:    params.UserId,
		Currency:  params.Currency,
		EntryType: models.EntryRelease,
		Reference: params.Reference,
		Change: func(b *models.Balance) error {
			if b.Staked.LessThan(params.Amount) {
				zap.L().Error("Staked pool smaller than released principal, clamping to zero",
					zap.String("user_id", params.UserId),
					zap.String("currency", params.Currency),
					zap.String("staked", b.Staked.String()),
					zap.String("release", params.Amount.String()),
					zap.String("shortfall", params.Amount.Sub(b.Staked).String()),
					zap.String("reference", params.Reference),
					zap.Bool("reconciliation_required", true))
				b.Staked = decimal.Zero
			} else {
				b.Staked = b.Staked.Sub(params.Amount)
			}
			b.Available = b.Available.Add(params.Amount)
			return nil
		},
	})
}

// AccrueReward adds amount to the rewards pool
func (s *Service) AccrueReward(ctx context.Context, params store.BalanceParams) (*models.LedgerEntry, error) {
	if err := requirePositive(params.Amount); err != nil {
		return nil, err
	}
	return s.applyBalanceChange(ctx, balanceChangeParams{
		UserId:    params.UserId,
		Currency:  params.Currency,
		EntryType: models.EntryReward,
		Reference: params.Reference,
		Change: func(b *models.Balance) error {
			b.TotalRewards = b.TotalRewards.Add(params.Amount)
			return nil
		},
	})
}

// SetBalance overwrites the given pools with absolute values
func (s *Service) SetBalance(ctx context.Context, params store.SetBalanceParams) (*models.LedgerEntry, error) {
	if params.Available == nil && params.Staked == nil && params.TotalRewards == nil {
		return nil, fmt.Errorf("%w: at least one pool must be set", store.ErrInvalidInput)
	}
	for _, v := range []*decimal.Decimal{params.Available, params.Staked, params.TotalRewards} {
		if v != nil && v.IsNegative() {
			return nil, fmt.Errorf("%w: pool value %s is negative", store.ErrInvalidAmount, v.String())
		}
	}

	return s.applyBalanceChange(ctx, balanceChangeParams{
		UserId:    params.UserId,
		Currency:  params.Currency,
		EntryType: models.EntryAdminAdjustment,
		Reference: params.Reference,
		Change: func(b *models.Balance) error {
			if params.Available != nil {
				b.Available = *params.Available
			}
			if params.Staked != nil {
				b.Staked = *params.Staked
			}
			if params.TotalRewards != nil {
				b.TotalRewards = *params.TotalRewards
			}
			return nil
		},
	})
}

// ListLedgerEntries returns the newest ledger entries first
func (s *Service) ListLedgerEntries(ctx context.Context, userId, currency string, limit, offset int) ([]models.LedgerEntry, error) {
	limit, offset = page(limit, offset)
	zap.L().Debug("Getting ledger history",
		zap.String("user_id", userId),
		zap.String("currency", currency),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryListLedgerEntries, userId, currency, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history: %w", err)
	}
	defer closeRows(rows)

	var entries []models.LedgerEntry
	for rows.Next() {
		var e models.LedgerEntry
		err := rows.Scan(&e.Id, &e.UserId, &e.Currency, &e.EntryType,
			&e.AvailableDelta, &e.StakedDelta, &e.RewardsDelta,
			&e.AvailableAfter, &e.StakedAfter, &e.RewardsAfter,
			&e.Reference, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}
	return entries, nil
}
