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

package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"staking-ledger-go/internal/metrics"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// withdrawalPool returns the pool a withdrawal of the given type draws from
func withdrawalPool(balance *models.Balance, withdrawalType string) decimal.Decimal {
	if withdrawalType == models.WithdrawalTypeProfit {
		return balance.TotalRewards
	}
	return balance.Available
}

func (s *LedgerService) checkWithdrawable(ctx context.Context, userId, currency, withdrawalType string, amount decimal.Decimal) error {
	balance, err := s.store.GetBalance(ctx, userId, currency)
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}
	pool := withdrawalPool(balance, withdrawalType)
	if pool.LessThan(amount) {
		return fmt.Errorf("%w: %s pool holds %s %s, requested %s",
			store.ErrInsufficientFunds, withdrawalType, pool.String(), currency, amount.String())
	}
	return nil
}

// RequestWithdrawal validates and records a withdrawal request. Funds are
// not reserved; they are checked again when the withdrawal is processed.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, userId string, req models.WithdrawalRequest) (*models.Withdrawal, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}
	if req.WithdrawalType != models.WithdrawalTypeBalance && req.WithdrawalType != models.WithdrawalTypeProfit {
		return nil, fmt.Errorf("%w: withdrawal type must be %q or %q",
			store.ErrInvalidInput, models.WithdrawalTypeBalance, models.WithdrawalTypeProfit)
	}
	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" {
		return nil, fmt.Errorf("%w: wallet address is required", store.ErrInvalidInput)
	}

	if err := s.checkWithdrawable(ctx, userId, currency, req.WithdrawalType, req.Amount); err != nil {
		zap.L().Info("Withdrawal request refused",
			zap.String("user_id", userId),
			zap.String("currency", currency),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}

	withdrawal := &models.Withdrawal{
		UserId:            userId,
		WithdrawalType:    req.WithdrawalType,
		Currency:          currency,
		Amount:            req.Amount,
		WalletAddress:     wallet,
		Status:            models.WithdrawalPending,
		ApprovalCondition: models.ConditionNone,
		RequestedAt:       s.now(),
	}
	if err := s.store.CreateWithdrawal(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}
	return withdrawal, nil
}

// ApproveWithdrawal approves a pending withdrawal under condition. The
// condition is evaluated now; when it holds the withdrawal is processed in
// the same call. A processing failure leaves the approval in place and is
// reported through the returned WithdrawalApproval.
func (s *LedgerService) ApproveWithdrawal(ctx context.Context, id, adminId string, req models.ApproveWithdrawalRequest) (*models.WithdrawalApproval, error) {
	condition := strings.TrimSpace(req.Condition)
	if condition == "" {
		condition = models.ConditionNone
	}
	if !ValidCondition(condition) {
		return nil, fmt.Errorf("%w: unknown approval condition %q", store.ErrInvalidInput, condition)
	}

	withdrawal, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalPending {
		return nil, fmt.Errorf("%w: withdrawal %s is %s", store.ErrAlreadyProcessed, id, withdrawal.Status)
	}

	met := s.evaluateOrDeny(ctx, withdrawal.UserId, condition)
	now := s.now()
	err = s.store.ReviewWithdrawal(ctx, store.WithdrawalReview{
		Id:           id,
		Status:       models.WithdrawalApproved,
		Condition:    condition,
		ConditionMet: met,
		AdminId:      adminId,
		AdminNotes:   strings.TrimSpace(req.Notes),
		ReviewedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	withdrawal.Status = models.WithdrawalApproved
	withdrawal.ApprovalCondition = condition
	withdrawal.ConditionMet = met
	withdrawal.AdminId = adminId
	withdrawal.AdminNotes = strings.TrimSpace(req.Notes)
	withdrawal.ReviewedAt = &now

	approval := &models.WithdrawalApproval{Withdrawal: withdrawal}
	if !met {
		zap.L().Info("Withdrawal approved, awaiting condition",
			zap.String("withdrawal_id", id),
			zap.String("condition", condition))
		return approval, nil
	}

	processed, err := s.ProcessWithdrawal(ctx, id)
	if err != nil {
		zap.L().Error("Approved withdrawal could not be processed",
			zap.String("withdrawal_id", id),
			zap.Error(err))
		approval.ProcessError = err.Error()
		return approval, nil
	}
	approval.Withdrawal = processed
	approval.Processed = processed.Status == models.WithdrawalCompleted
	return approval, nil
}

func (s *LedgerService) RejectWithdrawal(ctx context.Context, id, adminId, notes string) (*models.Withdrawal, error) {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, fmt.Errorf("%w: notes are required to reject a withdrawal", store.ErrInvalidInput)
	}

	withdrawal, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if withdrawal.Status != models.WithdrawalPending {
		return nil, fmt.Errorf("%w: withdrawal %s is %s", store.ErrAlreadyProcessed, id, withdrawal.Status)
	}

	now := s.now()
	err = s.store.ReviewWithdrawal(ctx, store.WithdrawalReview{
		Id:           id,
		Status:       models.WithdrawalRejected,
		Condition:    withdrawal.ApprovalCondition,
		ConditionMet: false,
		AdminId:      adminId,
		AdminNotes:   notes,
		ReviewedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	withdrawal.Status = models.WithdrawalRejected
	withdrawal.AdminId = adminId
	withdrawal.AdminNotes = notes
	withdrawal.ReviewedAt = &now
	return withdrawal, nil
}

// ProcessWithdrawal completes an approved withdrawal whose condition holds
// and debits the matching pool. A withdrawal that is not processable is
// returned unchanged.
func (s *LedgerService) ProcessWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	withdrawal, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !withdrawal.Processable() {
		zap.L().Debug("Withdrawal not processable",
			zap.String("withdrawal_id", id),
			zap.String("status", withdrawal.Status),
			zap.Bool("condition_met", withdrawal.ConditionMet))
		return withdrawal, nil
	}

	if err := s.checkWithdrawable(ctx, withdrawal.UserId, withdrawal.Currency, withdrawal.WithdrawalType, withdrawal.Amount); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.CompleteWithdrawal(ctx, id, now); err != nil {
		if errors.Is(err, store.ErrAlreadyProcessed) {
			// lost the race to a concurrent processor
			return s.store.GetWithdrawal(ctx, id)
		}
		return nil, err
	}

	params := store.BalanceParams{
		UserId:    withdrawal.UserId,
		Currency:  withdrawal.Currency,
		Amount:    withdrawal.Amount,
		Reference: store.WithdrawalReferencePrefix + withdrawal.Id,
	}
	var entry *models.LedgerEntry
	if withdrawal.WithdrawalType == models.WithdrawalTypeProfit {
		entry, err = s.store.DebitRewards(ctx, params)
	} else {
		entry, err = s.store.Debit(ctx, params)
	}
	if err != nil {
		return nil, compensate(ctx, "debit_withdrawal", err, func(ctx context.Context) error {
			return s.store.RevertWithdrawalCompletion(ctx, id)
		}, zap.String("withdrawal_id", id), zap.String("user_id", withdrawal.UserId))
	}
	s.mirror(ctx, entry)

	withdrawal.Status = models.WithdrawalCompleted
	withdrawal.ProcessedAt = &now
	zap.L().Info("Withdrawal processed",
		zap.String("withdrawal_id", id),
		zap.String("user_id", withdrawal.UserId),
		zap.String("type", withdrawal.WithdrawalType),
		zap.String("currency", withdrawal.Currency),
		zap.String("amount", withdrawal.Amount.String()))
	return withdrawal, nil
}

// RunWithdrawalConditionSweep re-evaluates every approved withdrawal still
// waiting on its condition and processes the ones that now qualify.
func (s *LedgerService) RunWithdrawalConditionSweep(ctx context.Context) (*models.SweepResult, error) {
	waiting, err := s.store.ListWithdrawals(ctx, store.WithdrawalFilter{AwaitingCondition: true, Limit: -1})
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list withdrawals: %v", store.ErrDependencyUnavailable, err)
	}

	result := &models.SweepResult{}
	for _, w := range waiting {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		if !s.evaluateOrDeny(ctx, w.UserId, w.ApprovalCondition) {
			metrics.SweepOutcome("unmet")
			continue
		}
		if err := s.store.SetWithdrawalConditionMet(ctx, w.Id); err != nil {
			if errors.Is(err, store.ErrAlreadyProcessed) {
				continue
			}
			result.Failed++
			metrics.SweepOutcome("failed")
			zap.L().Error("Unable to mark withdrawal condition met",
				zap.String("withdrawal_id", w.Id),
				zap.Error(err))
			continue
		}
		result.Met++

		processed, err := s.ProcessWithdrawal(ctx, w.Id)
		if err != nil {
			result.Failed++
			metrics.SweepOutcome("failed")
			zap.L().Error("Withdrawal processing failed during sweep",
				zap.String("withdrawal_id", w.Id),
				zap.String("user_id", w.UserId),
				zap.Error(err))
			continue
		}
		if processed.Status == models.WithdrawalCompleted {
			result.Processed++
			metrics.SweepOutcome("processed")
		}
	}

	zap.L().Info("Withdrawal condition sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("met", result.Met),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed))
	return result, nil
}

// WithdrawalConditionStatus evaluates a withdrawal's condition without
// changing anything.
func (s *LedgerService) WithdrawalConditionStatus(ctx context.Context, userId, id string) (*models.ConditionStatus, error) {
	withdrawal, err := s.store.GetWithdrawal(ctx, id)
	if err != nil {
		return nil, err
	}
	if userId != "" && withdrawal.UserId != userId {
		return nil, fmt.Errorf("%w: withdrawal %s", store.ErrNotFound, id)
	}

	status := &models.ConditionStatus{
		WithdrawalId: id,
		Condition:    withdrawal.ApprovalCondition,
		Met:          withdrawal.ConditionMet,
	}
	if withdrawal.ConditionMet || withdrawal.Status != models.WithdrawalApproved {
		return status, nil
	}

	met, err := s.conditions.Evaluate(ctx, withdrawal.UserId, withdrawal.ApprovalCondition)
	if err != nil {
		status.Error = err.Error()
		return status, nil
	}
	status.Met = met
	return status, nil
}

func (s *LedgerService) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	return s.store.GetWithdrawal(ctx, id)
}

func (s *LedgerService) ListWithdrawals(ctx context.Context, filter store.WithdrawalFilter) ([]models.Withdrawal, error) {
	withdrawals, err := s.store.ListWithdrawals(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}
