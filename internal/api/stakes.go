package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Actor is the caller of an operation that changes stake status
type Actor struct {
	Id    string
	Admin bool
}

func (s *LedgerService) CreateStake(ctx context.Context, userId string, req models.CreateStakeRequest) (*models.Stake, error) {
	return s.openStake(ctx, userId, req)
}

// AdminCreateStake opens a stake on behalf of a user
func (s *LedgerService) AdminCreateStake(ctx context.Context, adminId, userId string, req models.CreateStakeRequest) (*models.Stake, error) {
	zap.L().Info("Admin opening stake",
		zap.String("admin_id", adminId),
		zap.String("user_id", userId),
		zap.String("plan_id", req.PlanId),
		zap.String("amount", req.Amount.String()))
	return s.openStake(ctx, userId, req)
}

func (s *LedgerService) openStake(ctx context.Context, userId string, req models.CreateStakeRequest) (*models.Stake, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PlanId) == "" {
		return nil, fmt.Errorf("%w: plan id is required", store.ErrInvalidInput)
	}
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}

	plan, err := s.store.GetPlan(ctx, req.PlanId)
	if err != nil {
		return nil, err
	}
	if !plan.IsActive {
		return nil, fmt.Errorf("%w: %s", store.ErrPlanInactive, plan.Name)
	}
	if req.Amount.LessThan(plan.MinStake) {
		return nil, fmt.Errorf("%w: minimum stake for %s is %s %s",
			store.ErrBelowMinimum, plan.Name, plan.MinStake.String(), plan.Currency)
	}

	balance, err := s.store.GetBalance(ctx, userId, plan.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to read balance: %w", err)
	}
	if balance.Available.LessThan(req.Amount) {
		return nil, fmt.Errorf("%w: available %s, requested %s",
			store.ErrInsufficientFunds, balance.Available.String(), req.Amount.String())
	}

	now := s.now()
	stake := &models.Stake{
		UserId:        userId,
		PlanId:        plan.Id,
		Currency:      plan.Currency,
		Amount:        req.Amount,
		Apy:           plan.Apy,
		LockupDays:    plan.LockupDays,
		RewardsEarned: decimal.Zero,
		Status:        models.StakeActive,
		StartDate:     now,
		CreatedAt:     now,
	}
	if plan.LockupDays > 0 {
		end := now.Add(time.Duration(plan.LockupDays) * 24 * time.Hour)
		stake.EndDate = &end
	}

	if err := s.store.CreateStake(ctx, stake); err != nil {
		return nil, fmt.Errorf("failed to create stake: %w", err)
	}

	entry, err := s.store.MoveToStake(ctx, store.BalanceParams{
		UserId:    userId,
		Currency:  stake.Currency,
		Amount:    stake.Amount,
		Reference: "stake:" + stake.Id,
	})
	if err != nil {
		return nil, compensate(ctx, "reserve_stake", err, func(ctx context.Context) error {
			return s.store.DeleteStake(ctx, stake.Id)
		}, zap.String("stake_id", stake.Id), zap.String("user_id", userId))
	}
	s.mirror(ctx, entry)

	zap.L().Info("Stake opened",
		zap.String("stake_id", stake.Id),
		zap.String("user_id", userId),
		zap.String("plan_id", plan.Id),
		zap.String("currency", stake.Currency),
		zap.String("amount", stake.Amount.String()),
		zap.String("apy", stake.Apy.String()))
	return stake, nil
}

// CancelStake ends an active stake early and returns its principal to the
// available pool. Only an admin may cancel. Rewards already accrued are
// kept; nothing is settled for the partial period since the last accrual.
func (s *LedgerService) CancelStake(ctx context.Context, stakeId string, actor Actor, reason string) (*models.Stake, error) {
	if !actor.Admin {
		return nil, fmt.Errorf("%w: only an admin may cancel stake %s", store.ErrUnauthorized, stakeId)
	}
	stake, err := s.store.GetStake(ctx, stakeId)
	if err != nil {
		return nil, err
	}
	if stake.Status != models.StakeActive {
		return nil, fmt.Errorf("%w: stake %s is %s", store.ErrAlreadyProcessed, stakeId, stake.Status)
	}

	now := s.now()
	reason = strings.TrimSpace(reason)
	err = s.store.TransitionStake(ctx, store.StakeTransition{
		Id:           stakeId,
		From:         models.StakeActive,
		To:           models.StakeCancelled,
		EndDate:      &now,
		CancelReason: reason,
	})
	if err != nil {
		return nil, err
	}

	entry, err := s.store.ReleaseStake(ctx, store.BalanceParams{
		UserId:    stake.UserId,
		Currency:  stake.Currency,
		Amount:    stake.Amount,
		Reference: "stake:" + stake.Id,
	})
	if err != nil {
		return nil, compensate(ctx, "cancel_stake", err, func(ctx context.Context) error {
			return s.store.TransitionStake(ctx, store.StakeTransition{
				Id:           stakeId,
				From:         models.StakeCancelled,
				To:           models.StakeActive,
				EndDate:      stake.EndDate,
				CancelReason: stake.CancelReason,
			})
		}, zap.String("stake_id", stakeId), zap.String("user_id", stake.UserId))
	}
	s.mirror(ctx, entry)

	stake.Status = models.StakeCancelled
	stake.EndDate = &now
	stake.CancelReason = reason
	zap.L().Info("Stake cancelled",
		zap.String("stake_id", stakeId),
		zap.String("user_id", stake.UserId),
		zap.String("admin_id", actor.Id),
		zap.String("reason", reason))
	return stake, nil
}

func (s *LedgerService) GetStake(ctx context.Context, id string) (*models.Stake, error) {
	return s.store.GetStake(ctx, id)
}

func (s *LedgerService) ListStakes(ctx context.Context, filter store.StakeFilter) ([]models.Stake, error) {
	stakes, err := s.store.ListStakes(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list stakes: %w", err)
	}
	return stakes, nil
}
