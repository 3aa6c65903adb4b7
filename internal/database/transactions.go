package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxBalanceAttempts bounds retries after a version conflict on a balance row.
const maxBalanceAttempts = 5

// balanceChange mutates a balance in memory. Returning an error aborts the
// surrounding transaction without writing anything.
type balanceChange func(b *models.Balance) error

type balanceChangeParams struct {
	UserId    string
	Currency  string
	EntryType string
	Reference string
	Change    balanceChange
}

// applyBalanceChange atomically updates a balance row and records the
// ledger entry describing the change. Version conflicts are retried.
func (s *Service) applyBalanceChange(ctx context.Context, params balanceChangeParams) (*models.LedgerEntry, error) {
	if params.UserId == "" || params.Currency == "" {
		return nil, fmt.Errorf("%w: user id and currency are required", store.ErrInvalidInput)
	}

	for attempt := 1; ; attempt++ {
		entry, err := s.tryBalanceChange(ctx, params)
		if errors.Is(err, store.ErrConcurrentModification) && attempt < maxBalanceAttempts {
			zap.L().Warn("Balance version conflict, retrying",
				zap.String("user_id", params.UserId),
				zap.String("currency", params.Currency),
				zap.String("entry_type", params.EntryType),
				zap.Int("attempt", attempt))
			continue
		}
		return entry, err
	}
}

func (s *Service) tryBalanceChange(ctx context.Context, params balanceChangeParams) (*models.LedgerEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %v", store.ErrDependencyUnavailable, err)
	}
	defer tx.Rollback()

	balance, err := loadBalanceForUpdate(ctx, tx, params.UserId, params.Currency)
	if err != nil {
		return nil, err
	}
	before := *balance

	if err := params.Change(balance); err != nil {
		return nil, err
	}
	if balance.Available.IsNegative() || balance.Staked.IsNegative() || balance.TotalRewards.IsNegative() {
		return nil, fmt.Errorf("%w: %s %s would leave a negative pool", store.ErrInsufficientFunds, params.UserId, params.Currency)
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, queryUpdateBalance,
		balance.Available, balance.Staked, balance.TotalRewards, now, balance.Id, balance.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	entry := &models.LedgerEntry{
		Id:             uuid.New().String(),
		UserId:         params.UserId,
		Currency:       params.Currency,
		EntryType:      params.EntryType,
		AvailableDelta: balance.Available.Sub(before.Available),
		StakedDelta:    balance.Staked.Sub(before.Staked),
		RewardsDelta:   balance.TotalRewards.Sub(before.TotalRewards),
		AvailableAfter: balance.Available,
		StakedAfter:    balance.Staked,
		RewardsAfter:   balance.TotalRewards,
		Reference:      params.Reference,
		CreatedAt:      now,
	}
	_, err = tx.ExecContext(ctx, queryInsertLedgerEntry,
		entry.Id, entry.UserId, entry.Currency, entry.EntryType,
		entry.AvailableDelta, entry.StakedDelta, entry.RewardsDelta,
		entry.AvailableAfter, entry.StakedAfter, entry.RewardsAfter,
		entry.Reference, entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Balance updated",
		zap.String("entry_id", entry.Id),
		zap.String("entry_type", entry.EntryType),
		zap.String("user_id", entry.UserId),
		zap.String("currency", entry.Currency),
		zap.String("available", entry.AvailableAfter.String()),
		zap.String("staked", entry.StakedAfter.String()),
		zap.String("total_rewards", entry.RewardsAfter.String()),
		zap.String("reference", entry.Reference))

	return entry, nil
}

// loadBalanceForUpdate reads the balance row inside tx, creating a zero row
// on first use.
func loadBalanceForUpdate(ctx context.Context, tx *sql.Tx, userId, currency string) (*models.Balance, error) {
	balance, err := scanBalance(tx.QueryRowContext(ctx, queryGetBalance, userId, currency))
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	if _, err := tx.ExecContext(ctx, queryInsertBalance, uuid.New().String(), userId, currency, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("failed to create balance: %w", err)
	}

	balance, err = scanBalance(tx.QueryRowContext(ctx, queryGetBalance, userId, currency))
	if err != nil {
		return nil, fmt.Errorf("failed to read created balance: %w", err)
	}
	return balance, nil
}
