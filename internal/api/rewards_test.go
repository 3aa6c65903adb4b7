package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"
)

func TestRewardFor(t *testing.T) {
	tests := []struct {
		amount, apy string
		seconds     int64
		want        string
	}{
		{"6", "10", int64(36.5 * 24 * 3600), "0.06"},
		{"100", "5", 365 * 24 * 3600, "5"},
		{"100", "5", 0, "0"},
		{"100", "5", -10, "0"},
		{"100", "0", 3600, "0"},
	}
	for _, tt := range tests {
		got := RewardFor(dec(t, tt.amount), dec(t, tt.apy), tt.seconds)
		if !got.Equal(dec(t, tt.want)) {
			t.Errorf("RewardFor(%s, %s, %d) = %s, want %s", tt.amount, tt.apy, tt.seconds, got, tt.want)
		}
	}
}

func TestAccrualPass_MaturesStake(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	submitted := submitDeposit(t, env, "u1", "ETH", "10")
	if _, err := env.service.ApproveDeposit(ctx, submitted.Id, "admin-1", ""); err != nil {
		t.Fatalf("ApproveDeposit failed: %v", err)
	}
	plan := env.createPlan(t, "ETH", "10", 30, "1")
	stake, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "6")})
	if err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}
	env.expectBalance(t, "u1", "ETH", "4", "6", "0")

	env.clock.Advance(time.Duration(36.5 * float64(24*time.Hour)))
	result, err := env.service.RunRewardAccrualPass(ctx)
	if err != nil {
		t.Fatalf("RunRewardAccrualPass failed: %v", err)
	}
	if result.Accrued != 1 || result.Completed != 1 || result.Failed != 0 {
		t.Errorf("Unexpected result: %+v", result)
	}
	if !result.TotalRewards.Equal(dec(t, "0.06")) {
		t.Errorf("Expected total rewards 0.06, got %s", result.TotalRewards)
	}

	got, err := env.service.GetStake(ctx, stake.Id)
	if err != nil {
		t.Fatalf("GetStake failed: %v", err)
	}
	if got.Status != models.StakeCompleted || !got.RewardsEarned.Equal(dec(t, "0.06")) {
		t.Errorf("Unexpected stake after maturity: %+v", got)
	}
	env.expectBalance(t, "u1", "ETH", "10", "0", "0.06")
}

func TestAccrualPass_Idempotent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "100")
	plan := env.createPlan(t, "ETH", "5", 0, "0")
	if _, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "100")}); err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}

	env.clock.Advance(365 * 24 * time.Hour)
	first, err := env.service.RunRewardAccrualPass(ctx)
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	second, err := env.service.RunRewardAccrualPass(ctx)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if first.Accrued != 1 || second.Accrued != 0 || !second.TotalRewards.IsZero() {
		t.Errorf("Expected second pass to accrue nothing: first %+v second %+v", first, second)
	}
	env.expectBalance(t, "u1", "ETH", "0", "100", "5")
}

func TestAccrualPass_SplitEqualsSingle(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "100")
	plan := env.createPlan(t, "ETH", "5", 0, "0")
	if _, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "100")}); err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		env.clock.Advance(73 * 24 * time.Hour)
		if _, err := env.service.RunRewardAccrualPass(ctx); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
	}
	env.clock.Advance(73 * 24 * time.Hour)
	if _, err := env.service.RunRewardAccrualPass(ctx); err != nil {
		t.Fatalf("final pass failed: %v", err)
	}
	env.expectBalance(t, "u1", "ETH", "0", "100", "5")
}

func TestAccrualPass_BalanceFailureRevertsStake(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "100")
	plan := env.createPlan(t, "ETH", "5", 0, "0")
	stake, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "100")})
	if err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}

	env.clock.Advance(365 * 24 * time.Hour)
	env.faults.accrueErr = errInjected
	result, err := env.service.RunRewardAccrualPass(ctx)
	if err != nil {
		t.Fatalf("pass must not fail on a row error: %v", err)
	}
	if result.Failed != 1 || result.Accrued != 0 {
		t.Errorf("Unexpected result: %+v", result)
	}

	got, err := env.service.GetStake(ctx, stake.Id)
	if err != nil {
		t.Fatalf("GetStake failed: %v", err)
	}
	if !got.RewardsEarned.IsZero() || got.LastRewardAt != nil {
		t.Errorf("Expected stake rewards reverted, got %+v", got)
	}

	env.faults.accrueErr = nil
	if _, err := env.service.RunRewardAccrualPass(ctx); err != nil {
		t.Fatalf("retry pass failed: %v", err)
	}
	env.expectBalance(t, "u1", "ETH", "0", "100", "5")
}

func TestAccrualPass_CompletionFailureKeepsStakeActive(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "10")
	plan := env.createPlan(t, "ETH", "0", 1, "0")
	stake, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "10")})
	if err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}

	env.clock.Advance(48 * time.Hour)
	env.faults.releaseErr = errInjected
	result, err := env.service.RunRewardAccrualPass(ctx)
	if err != nil {
		t.Fatalf("RunRewardAccrualPass failed: %v", err)
	}
	if result.Failed != 1 || result.Completed != 0 {
		t.Errorf("Unexpected result: %+v", result)
	}
	got, err := env.service.GetStake(ctx, stake.Id)
	if err != nil {
		t.Fatalf("GetStake failed: %v", err)
	}
	if got.Status != models.StakeActive {
		t.Errorf("Expected stake to stay active, got %s", got.Status)
	}

	env.faults.releaseErr = nil
	result, err = env.service.RunRewardAccrualPass(ctx)
	if err != nil {
		t.Fatalf("retry pass failed: %v", err)
	}
	if result.Completed != 1 {
		t.Errorf("Expected completion on retry, got %+v", result)
	}
	env.expectBalance(t, "u1", "ETH", "10", "0", "0")
}

type listFailingStore struct {
	store.LedgerStore
}

func (listFailingStore) ListStakes(context.Context, store.StakeFilter) ([]models.Stake, error) {
	return nil, errInjected
}

func TestAccrualPass_StoreUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	service := NewLedgerService(listFailingStore{env.db}, env.service.assets, env.service.prices)

	if _, err := service.RunRewardAccrualPass(context.Background()); !errors.Is(err, store.ErrDependencyUnavailable) {
		t.Errorf("Expected ErrDependencyUnavailable, got %v", err)
	}
}
