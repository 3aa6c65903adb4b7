package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func createTestPlan(t *testing.T, s *Service, active bool) *models.StakingPlan {
	t.Helper()
	plan := &models.StakingPlan{
		Name:       "ETH 30 day",
		Currency:   "ETH",
		Apy:        decimal.NewFromInt(10),
		LockupDays: 30,
		MinStake:   decimal.RequireFromString("0.5"),
		IsActive:   active,
	}
	if err := s.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	return plan
}

func TestPlanCRUD(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, true)
	createTestPlan(t, service, false)

	active, err := service.ListPlans(ctx, true)
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active plan, got %d", len(active))
	}

	all, err := service.ListPlans(ctx, false)
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 plans, got %d", len(all))
	}

	plan.Apy = decimal.NewFromInt(12)
	plan.IsActive = false
	if err := service.UpdatePlan(ctx, plan); err != nil {
		t.Fatalf("UpdatePlan failed: %v", err)
	}

	got, err := service.GetPlan(ctx, plan.Id)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if !got.Apy.Equal(decimal.NewFromInt(12)) || got.IsActive {
		t.Errorf("Plan not updated: %+v", got)
	}
	if !got.MinStake.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Expected min stake 0.5, got %s", got.MinStake.String())
	}
}

func TestDeletePlan_BlockedByActiveStake(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	plan := createTestPlan(t, service, true)

	stake := &models.Stake{
		UserId: "user1", PlanId: plan.Id, Currency: "ETH", Amount: decimal.NewFromInt(1),
		Apy: plan.Apy, LockupDays: plan.LockupDays, RewardsEarned: decimal.Zero,
		Status: models.StakeActive, StartDate: time.Now().UTC(),
	}
	if err := service.CreateStake(ctx, stake); err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}

	if err := service.DeletePlan(ctx, plan.Id); !errors.Is(err, store.ErrPlanInUse) {
		t.Fatalf("Expected ErrPlanInUse, got %v", err)
	}

	err := service.TransitionStake(ctx, store.StakeTransition{Id: stake.Id, From: models.StakeActive, To: models.StakeCompleted})
	if err != nil {
		t.Fatalf("TransitionStake failed: %v", err)
	}

	if err := service.DeletePlan(ctx, plan.Id); err != nil {
		t.Fatalf("DeletePlan failed once stake completed: %v", err)
	}
	if err := service.DeletePlan(ctx, plan.Id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deleted plan, got %v", err)
	}
}
