package api

import (
	"context"
	"fmt"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func DefaultConditionThresholds() models.ConditionsConfig {
	return models.ConditionsConfig{
		MinStakeUSD:    decimal.NewFromInt(100),
		MinDepositsUSD: decimal.NewFromInt(500),
		MinAccountAge:  30 * 24 * time.Hour,
	}
}

// ValidCondition reports whether condition names a known approval condition
func ValidCondition(condition string) bool {
	switch condition {
	case models.ConditionNone, models.ConditionMinimumStake, models.ConditionMinimumDeposits, models.ConditionAccountAge:
		return true
	}
	return false
}

// ConditionEvaluator decides whether a user satisfies a withdrawal approval
// condition. It only reads.
type ConditionEvaluator struct {
	store      store.LedgerStore
	prices     PriceFeed
	thresholds models.ConditionsConfig
	now        func() time.Time
}

func NewConditionEvaluator(db store.LedgerStore, prices PriceFeed, thresholds models.ConditionsConfig, now func() time.Time) *ConditionEvaluator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ConditionEvaluator{store: db, prices: prices, thresholds: thresholds, now: now}
}

// Evaluate returns whether userId meets condition. Callers must treat an
// error as "not met".
func (e *ConditionEvaluator) Evaluate(ctx context.Context, userId, condition string) (bool, error) {
	switch condition {
	case models.ConditionNone:
		return true, nil
	case models.ConditionMinimumStake:
		amounts, err := e.store.SumActiveStakes(ctx, userId)
		if err != nil {
			return false, fmt.Errorf("%w: unable to sum active stakes: %v", store.ErrDependencyUnavailable, err)
		}
		return e.meetsUSD(ctx, amounts, e.thresholds.MinStakeUSD)
	case models.ConditionMinimumDeposits:
		amounts, err := e.store.SumCreditedDeposits(ctx, userId)
		if err != nil {
			return false, fmt.Errorf("%w: unable to sum deposits: %v", store.ErrDependencyUnavailable, err)
		}
		return e.meetsUSD(ctx, amounts, e.thresholds.MinDepositsUSD)
	case models.ConditionAccountAge:
		user, err := e.store.GetUserById(ctx, userId)
		if err != nil {
			return false, err
		}
		return e.now().Sub(user.CreatedAt) >= e.thresholds.MinAccountAge, nil
	default:
		return false, fmt.Errorf("%w: unknown approval condition %q", store.ErrInvalidInput, condition)
	}
}

// meetsUSD values per-currency amounts in USD and compares with threshold.
// A currency without a price makes the whole evaluation fail.
func (e *ConditionEvaluator) meetsUSD(ctx context.Context, amounts map[string]decimal.Decimal, threshold decimal.Decimal) (bool, error) {
	total := decimal.Zero
	for currency, amount := range amounts {
		price, err := e.prices.USDPrice(ctx, currency)
		if err != nil {
			return false, fmt.Errorf("%w: no USD price for %s: %v", store.ErrDependencyUnavailable, currency, err)
		}
		total = total.Add(amount.Mul(price))
	}
	zap.L().Debug("Condition valuation",
		zap.String("total_usd", total.String()),
		zap.String("threshold_usd", threshold.String()))
	return total.GreaterThanOrEqual(threshold), nil
}

// evaluateOrDeny runs the evaluator and maps any error to false
func (s *LedgerService) evaluateOrDeny(ctx context.Context, userId, condition string) bool {
	met, err := s.conditions.Evaluate(ctx, userId, condition)
	if err != nil {
		zap.L().Warn("Condition evaluation failed, treating as not met",
			zap.String("user_id", userId),
			zap.String("condition", condition),
			zap.Error(err))
		return false
	}
	return met
}
