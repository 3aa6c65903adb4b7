package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staking-ledger-go/internal/metrics"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// percent-seconds in a 365 day year
var secondsPerYearPercent = decimal.NewFromInt(100 * 365 * 24 * 60 * 60)

// RewardFor computes the simple interest a stake earns over whole seconds
func RewardFor(amount, apy decimal.Decimal, seconds int64) decimal.Decimal {
	if seconds <= 0 {
		return decimal.Zero
	}
	return amount.Mul(apy).Mul(decimal.NewFromInt(seconds)).Div(secondsPerYearPercent)
}

// RunRewardAccrualPass accrues rewards on every active stake and completes
// stakes whose lockup has ended. Rows fail independently; only a store that
// cannot list stakes fails the pass. Running it twice at the same instant
// accrues nothing the second time.
func (s *LedgerService) RunRewardAccrualPass(ctx context.Context) (*models.AccrualResult, error) {
	stakes, err := s.store.ListStakes(ctx, store.StakeFilter{Status: models.StakeActive, Limit: -1})
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list active stakes: %v", store.ErrDependencyUnavailable, err)
	}

	now := s.now()
	result := &models.AccrualResult{TotalRewards: decimal.Zero}

	for _, stake := range stakes {
		if err := ctx.Err(); err != nil {
			zap.L().Warn("Reward accrual pass interrupted",
				zap.Int("accrued", result.Accrued),
				zap.Int("remaining", len(stakes)-result.Accrued-result.Failed-result.Skipped))
			return result, err
		}

		increment, err := s.accrueStake(ctx, stake, now)
		switch {
		case errors.Is(err, store.ErrConcurrentModification):
			// another pass settled this stake first
			result.Skipped++
			metrics.AccrualOutcome("skipped")
			continue
		case err != nil:
			result.Failed++
			metrics.AccrualOutcome("failed")
			zap.L().Error("Reward accrual failed",
				zap.String("stake_id", stake.Id),
				zap.String("user_id", stake.UserId),
				zap.Error(err))
			continue
		}
		if increment.IsPositive() {
			result.Accrued++
			result.TotalRewards = result.TotalRewards.Add(increment)
			metrics.AccrualOutcome("accrued")
		}

		if stake.EndDate == nil || stake.EndDate.After(now) {
			continue
		}
		if err := s.completeStake(ctx, stake); err != nil {
			if errors.Is(err, store.ErrAlreadyProcessed) {
				continue
			}
			result.Failed++
			metrics.AccrualOutcome("failed")
			zap.L().Error("Stake completion failed",
				zap.String("stake_id", stake.Id),
				zap.String("user_id", stake.UserId),
				zap.Error(err))
			continue
		}
		result.Completed++
		metrics.AccrualOutcome("completed")
	}

	zap.L().Info("Reward accrual pass finished",
		zap.Int("stakes", len(stakes)),
		zap.Int("accrued", result.Accrued),
		zap.Int("completed", result.Completed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.String("total_rewards", result.TotalRewards.String()))
	return result, nil
}

// accrueStake settles rewards for stake up to now. last_reward_at only
// advances by the whole seconds that were paid, so no time is lost between
// passes.
func (s *LedgerService) accrueStake(ctx context.Context, stake models.Stake, now time.Time) (decimal.Decimal, error) {
	since := stake.AccruedSince()
	seconds := int64(now.Sub(since) / time.Second)
	if seconds <= 0 {
		return decimal.Zero, nil
	}

	increment := RewardFor(stake.Amount, stake.Apy, seconds)
	accruedTo := since.Add(time.Duration(seconds) * time.Second)

	err := s.store.UpdateStakeRewards(ctx, store.StakeRewardUpdate{
		Id:            stake.Id,
		Version:       stake.Version,
		RewardsEarned: stake.RewardsEarned.Add(increment),
		LastRewardAt:  &accruedTo,
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !increment.IsPositive() {
		return decimal.Zero, nil
	}

	entry, err := s.store.AccrueReward(ctx, store.BalanceParams{
		UserId:    stake.UserId,
		Currency:  stake.Currency,
		Amount:    increment,
		Reference: "stake:" + stake.Id,
	})
	if err != nil {
		return decimal.Zero, compensate(ctx, "accrue_reward", err, func(ctx context.Context) error {
			return s.store.UpdateStakeRewards(ctx, store.StakeRewardUpdate{
				Id:            stake.Id,
				Version:       stake.Version + 1,
				RewardsEarned: stake.RewardsEarned,
				LastRewardAt:  stake.LastRewardAt,
			})
		}, zap.String("stake_id", stake.Id), zap.String("user_id", stake.UserId))
	}
	s.mirror(ctx, entry)

	zap.L().Debug("Reward accrued",
		zap.String("stake_id", stake.Id),
		zap.String("user_id", stake.UserId),
		zap.String("currency", stake.Currency),
		zap.String("reward", increment.String()),
		zap.Int64("seconds", seconds))
	return increment, nil
}

// completeStake closes a matured stake and returns its principal
func (s *LedgerService) completeStake(ctx context.Context, stake models.Stake) error {
	err := s.store.TransitionStake(ctx, store.StakeTransition{
		Id:      stake.Id,
		From:    models.StakeActive,
		To:      models.StakeCompleted,
		EndDate: stake.EndDate,
	})
	if err != nil {
		return err
	}

	entry, err := s.store.ReleaseStake(ctx, store.BalanceParams{
		UserId:    stake.UserId,
		Currency:  stake.Currency,
		Amount:    stake.Amount,
		Reference: "stake:" + stake.Id,
	})
	if err != nil {
		return compensate(ctx, "complete_stake", err, func(ctx context.Context) error {
			return s.store.TransitionStake(ctx, store.StakeTransition{
				Id:      stake.Id,
				From:    models.StakeCompleted,
				To:      models.StakeActive,
				EndDate: stake.EndDate,
			})
		}, zap.String("stake_id", stake.Id), zap.String("user_id", stake.UserId))
	}
	s.mirror(ctx, entry)

	zap.L().Info("Stake completed",
		zap.String("stake_id", stake.Id),
		zap.String("user_id", stake.UserId),
		zap.String("currency", stake.Currency),
		zap.String("principal", stake.Amount.String()))
	return nil
}
