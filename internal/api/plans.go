package api

import (
	"context"
	"fmt"
	"strings"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *LedgerService) validatePlan(plan *models.StakingPlan) error {
	plan.Name = strings.TrimSpace(plan.Name)
	if plan.Name == "" {
		return fmt.Errorf("%w: plan name is required", store.ErrInvalidInput)
	}
	currency, err := s.currency(plan.Currency)
	if err != nil {
		return err
	}
	plan.Currency = currency
	if plan.Apy.IsNegative() {
		return fmt.Errorf("%w: apy must not be negative", store.ErrInvalidInput)
	}
	if plan.LockupDays < 0 {
		return fmt.Errorf("%w: lockup days must not be negative", store.ErrInvalidInput)
	}
	if plan.MinStake.IsNegative() {
		return fmt.Errorf("%w: minimum stake must not be negative", store.ErrInvalidInput)
	}
	return nil
}

// CreatePlan adds a staking plan. Missing fields take zero values and plans
// are active unless IsActive says otherwise.
func (s *LedgerService) CreatePlan(ctx context.Context, adminId string, req models.PlanRequest) (*models.StakingPlan, error) {
	plan := &models.StakingPlan{
		Apy:      decimal.Zero,
		MinStake: decimal.Zero,
		IsActive: true,
	}
	applyPlanRequest(plan, req)
	if err := s.validatePlan(plan); err != nil {
		return nil, err
	}

	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("failed to create plan: %w", err)
	}

	zap.L().Info("Staking plan created",
		zap.String("plan_id", plan.Id),
		zap.String("name", plan.Name),
		zap.String("currency", plan.Currency),
		zap.String("apy", plan.Apy.String()),
		zap.Int("lockup_days", plan.LockupDays),
		zap.String("admin_id", adminId))
	return plan, nil
}

// UpdatePlan changes the fields set in req. Existing stakes keep the apy and
// lockup they were opened with.
func (s *LedgerService) UpdatePlan(ctx context.Context, adminId, id string, req models.PlanRequest) (*models.StakingPlan, error) {
	plan, err := s.store.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}
	applyPlanRequest(plan, req)
	if err := s.validatePlan(plan); err != nil {
		return nil, err
	}

	if err := s.store.UpdatePlan(ctx, plan); err != nil {
		return nil, err
	}

	zap.L().Info("Admin updated staking plan",
		zap.String("plan_id", id),
		zap.String("admin_id", adminId))
	return plan, nil
}

// DeletePlan removes a plan no active stake refers to
func (s *LedgerService) DeletePlan(ctx context.Context, adminId, id string) error {
	if err := s.store.DeletePlan(ctx, id); err != nil {
		return err
	}
	zap.L().Info("Staking plan deleted",
		zap.String("plan_id", id),
		zap.String("admin_id", adminId))
	return nil
}

func (s *LedgerService) GetPlan(ctx context.Context, id string) (*models.StakingPlan, error) {
	return s.store.GetPlan(ctx, id)
}

func (s *LedgerService) ListPlans(ctx context.Context, activeOnly bool) ([]models.StakingPlan, error) {
	plans, err := s.store.ListPlans(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

func applyPlanRequest(plan *models.StakingPlan, req models.PlanRequest) {
	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Currency != nil {
		plan.Currency = *req.Currency
	}
	if req.Apy != nil {
		plan.Apy = *req.Apy
	}
	if req.LockupDays != nil {
		plan.LockupDays = *req.LockupDays
	}
	if req.MinStake != nil {
		plan.MinStake = *req.MinStake
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
}
