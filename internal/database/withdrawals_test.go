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

func createTestWithdrawal(t *testing.T, s *Service) *models.Withdrawal {
	t.Helper()
	w := &models.Withdrawal{
		UserId:         "user1",
		WithdrawalType: models.WithdrawalTypeBalance,
		Currency:       "USDT",
		Amount:         decimal.NewFromInt(100),
		WalletAddress:  "0xdest",
		Status:         models.WithdrawalPending,
	}
	if err := s.CreateWithdrawal(context.Background(), w); err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}
	return w
}

func TestWithdrawalConditionalLifecycle(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	w := createTestWithdrawal(t, service)

	if err := service.CompleteWithdrawal(ctx, w.Id, time.Now()); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Pending withdrawal must not complete, got %v", err)
	}

	err := service.ReviewWithdrawal(ctx, store.WithdrawalReview{
		Id: w.Id, Status: models.WithdrawalApproved, Condition: models.ConditionMinimumStake,
		ConditionMet: false, AdminId: "admin1", ReviewedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("ReviewWithdrawal failed: %v", err)
	}

	awaiting, err := service.ListWithdrawals(ctx, store.WithdrawalFilter{AwaitingCondition: true})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(awaiting) != 1 || awaiting[0].Id != w.Id {
		t.Fatalf("Expected withdrawal awaiting condition, got %+v", awaiting)
	}

	if err := service.CompleteWithdrawal(ctx, w.Id, time.Now()); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Unmet condition must block completion, got %v", err)
	}

	if err := service.SetWithdrawalConditionMet(ctx, w.Id); err != nil {
		t.Fatalf("SetWithdrawalConditionMet failed: %v", err)
	}
	if err := service.SetWithdrawalConditionMet(ctx, w.Id); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Expected ErrAlreadyProcessed on second condition update, got %v", err)
	}

	if err := service.CompleteWithdrawal(ctx, w.Id, time.Now()); err != nil {
		t.Fatalf("CompleteWithdrawal failed: %v", err)
	}
	if err := service.RevertWithdrawalCompletion(ctx, w.Id); err != nil {
		t.Fatalf("RevertWithdrawalCompletion failed: %v", err)
	}
	if err := service.CompleteWithdrawal(ctx, w.Id, time.Now()); err != nil {
		t.Fatalf("CompleteWithdrawal after revert failed: %v", err)
	}

	payouts, err := service.ListWithdrawals(ctx, store.WithdrawalFilter{AwaitingPayout: true})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(payouts) != 0 {
		t.Fatalf("Withdrawal must not await payout before its debit, got %d", len(payouts))
	}

	if _, err := service.Credit(ctx, store.BalanceParams{UserId: "user1", Currency: "USDT", Amount: decimal.NewFromInt(100), Reference: "deposit:d1"}); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if _, err := service.Debit(ctx, store.BalanceParams{UserId: "user1", Currency: "USDT", Amount: decimal.NewFromInt(100), Reference: store.WithdrawalReferencePrefix + w.Id}); err != nil {
		t.Fatalf("Debit failed: %v", err)
	}

	payouts, err = service.ListWithdrawals(ctx, store.WithdrawalFilter{AwaitingPayout: true, UserId: "user1"})
	if err != nil {
		t.Fatalf("ListWithdrawals failed: %v", err)
	}
	if len(payouts) != 1 || payouts[0].Id != w.Id {
		t.Fatalf("Expected 1 withdrawal awaiting payout, got %+v", payouts)
	}

	if err := service.SetWithdrawalPayout(ctx, w.Id, "activity-1"); err != nil {
		t.Fatalf("SetWithdrawalPayout failed: %v", err)
	}
	if err := service.RevertWithdrawalCompletion(ctx, w.Id); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Paid out withdrawal must not revert, got %v", err)
	}

	got, err := service.GetWithdrawal(ctx, w.Id)
	if err != nil {
		t.Fatalf("GetWithdrawal failed: %v", err)
	}
	if got.Status != models.WithdrawalCompleted || got.PayoutId != "activity-1" || got.ProcessedAt == nil {
		t.Errorf("Unexpected final withdrawal: %+v", got)
	}
}

func TestReviewWithdrawal_Rejected(t *testing.T) {
	service, cleanup := setupTestService(t)
	defer cleanup()

	ctx := context.Background()
	w := createTestWithdrawal(t, service)

	review := store.WithdrawalReview{Id: w.Id, Status: models.WithdrawalRejected, Condition: models.ConditionNone, AdminId: "admin1", AdminNotes: "bad address", ReviewedAt: time.Now()}
	if err := service.ReviewWithdrawal(ctx, review); err != nil {
		t.Fatalf("ReviewWithdrawal failed: %v", err)
	}
	if err := service.ReviewWithdrawal(ctx, review); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Expected ErrAlreadyProcessed, got %v", err)
	}

	review.Id = "missing"
	if err := service.ReviewWithdrawal(ctx, review); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}
