package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"
)

func requestWithdrawal(t *testing.T, env *testEnv, userId, wType, currency, amount string) *models.Withdrawal {
	t.Helper()
	w, err := env.service.RequestWithdrawal(context.Background(), userId, models.WithdrawalRequest{
		WithdrawalType: wType,
		Currency:       currency,
		Amount:         dec(t, amount),
		WalletAddress:  "0x1111111111111111111111111111111111111111",
	})
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	return w
}

func TestRequestWithdrawal_InsufficientCreatesNoRow(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "USDT", "150")

	_, err := env.service.RequestWithdrawal(ctx, "u1", models.WithdrawalRequest{
		WithdrawalType: models.WithdrawalTypeBalance,
		Currency:       "USDT",
		Amount:         dec(t, "200"),
		WalletAddress:  "TXyz",
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("Expected ErrInsufficientFunds, got %v", err)
	}

	withdrawals, err := env.service.ListWithdrawals(ctx, store.WithdrawalFilter{UserId: "u1"})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(withdrawals) != 0 {
		t.Errorf("Expected no withdrawal rows, got %d", len(withdrawals))
	}
	env.expectBalance(t, "u1", "USDT", "150", "0", "0")
}

func TestRequestWithdrawal_Validation(t *testing.T) {
	env := setupTestEnv(t)
	env.fund(t, "u1", "ETH", "1")

	tests := []struct {
		name string
		req  models.WithdrawalRequest
	}{
		{"bad type", models.WithdrawalRequest{WithdrawalType: "everything", Currency: "ETH", Amount: dec(t, "1"), WalletAddress: "0x1"}},
		{"bad currency", models.WithdrawalRequest{WithdrawalType: "balance", Currency: "XYZ", Amount: dec(t, "1"), WalletAddress: "0x1"}},
		{"zero amount", models.WithdrawalRequest{WithdrawalType: "balance", Currency: "ETH", Amount: dec(t, "0"), WalletAddress: "0x1"}},
		{"no wallet", models.WithdrawalRequest{WithdrawalType: "balance", Currency: "ETH", Amount: dec(t, "1"), WalletAddress: " "}},
	}
	for _, tt := range tests {
		if _, err := env.service.RequestWithdrawal(context.Background(), "u1", tt.req); !errors.Is(err, store.ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tt.name, err)
		}
	}
}

func TestApproveWithdrawal_NoConditionProcessesImmediately(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "2")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "1.5")

	approval, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{})
	if err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	if !approval.Processed || approval.Withdrawal.Status != models.WithdrawalCompleted {
		t.Errorf("Expected completed withdrawal, got %+v", approval)
	}
	env.expectBalance(t, "u1", "ETH", "0.5", "0", "0")

	if _, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{}); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Errorf("Expected ErrAlreadyProcessed, got %v", err)
	}
	again, err := env.service.ProcessWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("ProcessWithdrawal of completed withdrawal failed: %v", err)
	}
	if again.Status != models.WithdrawalCompleted {
		t.Errorf("Expected completed, got %s", again.Status)
	}
	env.expectBalance(t, "u1", "ETH", "0.5", "0", "0")
}

func TestApproveWithdrawal_FundsSpentBeforeProcessing(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "2")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "2")

	plan := env.createPlan(t, "ETH", "5", 0, "0")
	if _, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "1")}); err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}

	approval, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{Condition: models.ConditionNone})
	if err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	if approval.Processed || approval.ProcessError == "" {
		t.Errorf("Expected approval with processing error, got %+v", approval)
	}

	got, err := env.service.GetWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if got.Status != models.WithdrawalApproved {
		t.Errorf("Expected withdrawal to stay approved, got %s", got.Status)
	}
	env.expectBalance(t, "u1", "ETH", "1", "1", "0")
}

func TestApproveWithdrawal_UnknownCondition(t *testing.T) {
	env := setupTestEnv(t)
	env.fund(t, "u1", "ETH", "1")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "1")

	_, err := env.service.ApproveWithdrawal(context.Background(), w.Id, "admin-1", models.ApproveWithdrawalRequest{Condition: "moon_phase"})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestConditionalWithdrawal_SweepProcessesOnceMet(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "1")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "0.5")

	approval, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{
		Condition: models.ConditionMinimumStake,
		Notes:     "stake first",
	})
	if err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	if approval.Processed || approval.Withdrawal.ConditionMet {
		t.Fatalf("Expected condition unmet, got %+v", approval)
	}
	if _, err := env.service.ProcessWithdrawal(ctx, w.Id); err != nil {
		t.Fatalf("ProcessWithdrawal failed: %v", err)
	}
	env.expectBalance(t, "u1", "ETH", "1", "0", "0")

	result, err := env.service.RunWithdrawalConditionSweep(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Checked != 1 || result.Met != 0 || result.Processed != 0 {
		t.Errorf("Unexpected sweep result before staking: %+v", result)
	}

	status, err := env.service.WithdrawalConditionStatus(ctx, "u1", w.Id)
	if err != nil {
		t.Fatalf("WithdrawalConditionStatus failed: %v", err)
	}
	if status.Met {
		t.Errorf("Expected condition status unmet")
	}

	// 0.1 ETH at 3500 USD clears the 100 USD minimum
	plan := env.createPlan(t, "ETH", "5", 0, "0")
	if _, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "0.1")}); err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}

	result, err = env.service.RunWithdrawalConditionSweep(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Checked != 1 || result.Met != 1 || result.Processed != 1 || result.Failed != 0 {
		t.Errorf("Unexpected sweep result after staking: %+v", result)
	}
	env.expectBalance(t, "u1", "ETH", "0.4", "0.1", "0")

	result, err = env.service.RunWithdrawalConditionSweep(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if result.Checked != 0 {
		t.Errorf("Expected nothing left to sweep, got %+v", result)
	}
}

func TestProcessWithdrawal_DebitFailureReverts(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "1")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "1")

	env.faults.debitErr = errInjected
	approval, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{})
	if err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	if approval.Processed {
		t.Fatalf("Expected processing to fail")
	}
	got, err := env.service.GetWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if got.Status != models.WithdrawalApproved || !got.ConditionMet {
		t.Errorf("Expected approved withdrawal after revert, got %+v", got)
	}

	env.faults.debitErr = nil
	processed, err := env.service.ProcessWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("ProcessWithdrawal retry failed: %v", err)
	}
	if processed.Status != models.WithdrawalCompleted {
		t.Errorf("Expected completed, got %s", processed.Status)
	}
	env.expectBalance(t, "u1", "ETH", "0", "0", "0")
}

func TestProfitWithdrawal_DebitsRewards(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "1")
	rewards := dec(t, "0.3")
	if _, err := env.service.AdjustBalance(ctx, "admin-1", "u1", "ETH", models.AdjustBalanceRequest{TotalRewards: &rewards}); err != nil {
		t.Fatalf("AdjustBalance failed: %v", err)
	}

	if _, err := env.service.RequestWithdrawal(ctx, "u1", models.WithdrawalRequest{
		WithdrawalType: models.WithdrawalTypeProfit,
		Currency:       "ETH",
		Amount:         dec(t, "0.5"),
		WalletAddress:  "0x1",
	}); !errors.Is(err, store.ErrInsufficientFunds) {
		t.Errorf("Expected ErrInsufficientFunds against the rewards pool, got %v", err)
	}

	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeProfit, "ETH", "0.2")
	if _, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{}); err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	env.expectBalance(t, "u1", "ETH", "1", "0", "0.1")
}

func TestRejectWithdrawal(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	env.fund(t, "u1", "ETH", "1")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "1")

	if _, err := env.service.RejectWithdrawal(ctx, w.Id, "admin-1", ""); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput without notes, got %v", err)
	}
	rejected, err := env.service.RejectWithdrawal(ctx, w.Id, "admin-1", "suspicious address")
	if err != nil {
		t.Fatalf("RejectWithdrawal failed: %v", err)
	}
	if rejected.Status != models.WithdrawalRejected {
		t.Errorf("Expected rejected, got %s", rejected.Status)
	}
	if _, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{}); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Errorf("Expected ErrAlreadyProcessed, got %v", err)
	}
	env.expectBalance(t, "u1", "ETH", "1", "0", "0")
}

type fakePayouts struct {
	sent []string
	err  error
}

func (p *fakePayouts) SendPayout(_ context.Context, w models.Withdrawal) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.sent = append(p.sent, w.Id)
	return "activity-" + w.Id, nil
}

func TestDispatchPayouts(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	payouts := &fakePayouts{err: errInjected}
	env.service.payouts = payouts

	env.fund(t, "u1", "ETH", "1")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "1")
	if _, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{}); err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}

	result, err := env.service.DispatchPayouts(ctx)
	if err != nil {
		t.Fatalf("DispatchPayouts failed: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Errorf("Unexpected result with failing sender: %+v", result)
	}

	payouts.err = nil
	result, err = env.service.DispatchPayouts(ctx)
	if err != nil {
		t.Fatalf("DispatchPayouts failed: %v", err)
	}
	if result.Sent != 1 {
		t.Errorf("Expected one payout, got %+v", result)
	}
	got, err := env.service.GetWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if got.PayoutId != "activity-"+w.Id {
		t.Errorf("Expected payout id recorded, got %q", got.PayoutId)
	}

	result, err = env.service.DispatchPayouts(ctx)
	if err != nil {
		t.Fatalf("DispatchPayouts failed: %v", err)
	}
	if result.Sent != 0 || len(payouts.sent) != 1 {
		t.Errorf("Expected no resend, got %+v and %d sends", result, len(payouts.sent))
	}
}

func TestDispatchPayouts_WaitsForCommittedDebit(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	payouts := &fakePayouts{}
	env.service.payouts = payouts

	env.fund(t, "u1", "ETH", "1")
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "1")

	// a dispatch pass lands between completion and a failing debit
	var during *models.PayoutResult
	env.faults.beforeDebit = func() {
		result, err := env.service.DispatchPayouts(ctx)
		if err != nil {
			t.Errorf("DispatchPayouts failed: %v", err)
		}
		during = result
	}
	env.faults.debitErr = errInjected

	approval, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{})
	if err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}
	if approval.Processed || approval.ProcessError == "" {
		t.Fatalf("Expected processing failure, got %+v", approval)
	}
	if during == nil || during.Sent != 0 || len(payouts.sent) != 0 {
		t.Fatalf("Payout sent before debit committed: %+v, sent %v", during, payouts.sent)
	}

	got, err := env.service.GetWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if got.Status != models.WithdrawalApproved || got.PayoutId != "" {
		t.Errorf("Expected approved withdrawal without payout, got %+v", got)
	}
	env.expectBalance(t, "u1", "ETH", "1", "0", "0")

	env.faults.beforeDebit = nil
	env.faults.debitErr = nil
	if _, err := env.service.ProcessWithdrawal(ctx, w.Id); err != nil {
		t.Fatalf("ProcessWithdrawal failed: %v", err)
	}
	result, err := env.service.DispatchPayouts(ctx)
	if err != nil {
		t.Fatalf("DispatchPayouts failed: %v", err)
	}
	if result.Sent != 1 || len(payouts.sent) != 1 {
		t.Errorf("Expected one payout after debit, got %+v", result)
	}
	env.expectBalance(t, "u1", "ETH", "0", "0", "0")
}

func TestConservationAcrossWorkflows(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.fund(t, "u1", "ETH", "10")
	plan := env.createPlan(t, "ETH", "12", 0, "0")
	stake, err := env.service.CreateStake(ctx, "u1", models.CreateStakeRequest{PlanId: plan.Id, Amount: dec(t, "4")})
	if err != nil {
		t.Fatalf("CreateStake failed: %v", err)
	}
	env.clock.Advance(30 * 24 * time.Hour)
	result, err := env.service.RunRewardAccrualPass(ctx)
	if err != nil {
		t.Fatalf("RunRewardAccrualPass failed: %v", err)
	}
	if _, err := env.service.CancelStake(ctx, stake.Id, Actor{Id: "admin-1", Admin: true}, ""); err != nil {
		t.Fatalf("CancelStake failed: %v", err)
	}
	w := requestWithdrawal(t, env, "u1", models.WithdrawalTypeBalance, "ETH", "3")
	if _, err := env.service.ApproveWithdrawal(ctx, w.Id, "admin-1", models.ApproveWithdrawalRequest{}); err != nil {
		t.Fatalf("ApproveWithdrawal failed: %v", err)
	}

	b, err := env.service.GetBalance(ctx, "u1", "ETH")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	// available + staked = credited - withdrawn; rewards = accrued
	if !b.Available.Add(b.Staked).Equal(dec(t, "7")) {
		t.Errorf("Principal not conserved: available %s staked %s", b.Available, b.Staked)
	}
	if !b.TotalRewards.Equal(result.TotalRewards) {
		t.Errorf("Rewards %s differ from accrued %s", b.TotalRewards, result.TotalRewards)
	}
}
