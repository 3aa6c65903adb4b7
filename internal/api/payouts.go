package api

import (
	"context"
	"errors"
	"fmt"

	"staking-ledger-go/internal/metrics"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"go.uber.org/zap"
)

// DispatchPayouts sends every completed withdrawal that has no payout yet.
// Each send uses the withdrawal id as idempotency key, so a withdrawal whose
// payout id could not be stored is safely resent on the next pass.
func (s *LedgerService) DispatchPayouts(ctx context.Context) (*models.PayoutResult, error) {
	result := &models.PayoutResult{}
	if s.payouts == nil {
		return result, nil
	}

	pending, err := s.store.ListWithdrawals(ctx, store.WithdrawalFilter{AwaitingPayout: true, Limit: -1})
	if err != nil {
		return nil, fmt.Errorf("%w: unable to list withdrawals awaiting payout: %v", store.ErrDependencyUnavailable, err)
	}

	for _, w := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		payoutId, err := s.payouts.SendPayout(ctx, w)
		if err != nil {
			result.Failed++
			metrics.PayoutOutcome("failed")
			zap.L().Error("Payout failed",
				zap.String("withdrawal_id", w.Id),
				zap.String("currency", w.Currency),
				zap.String("amount", w.Amount.String()),
				zap.Error(err))
			continue
		}

		if err := s.store.SetWithdrawalPayout(ctx, w.Id, payoutId); err != nil && !errors.Is(err, store.ErrAlreadyProcessed) {
			result.Failed++
			metrics.PayoutOutcome("failed")
			zap.L().Error("Payout sent but not recorded",
				zap.String("withdrawal_id", w.Id),
				zap.String("payout_id", payoutId),
				zap.Error(err))
			continue
		}

		result.Sent++
		metrics.PayoutOutcome("sent")
		zap.L().Info("Payout sent",
			zap.String("withdrawal_id", w.Id),
			zap.String("payout_id", payoutId),
			zap.String("currency", w.Currency),
			zap.String("amount", w.Amount.String()))
	}
	return result, nil
}
