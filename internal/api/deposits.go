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
	"fmt"
	"strings"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"go.uber.org/zap"
)

// SubmitDeposit records a user's claim of an incoming transfer. Nothing is
// credited until an admin approves it.
func (s *LedgerService) SubmitDeposit(ctx context.Context, userId string, req models.SubmitDepositRequest) (*models.Deposit, error) {
	if err := requireUser(userId); err != nil {
		return nil, err
	}
	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}

	deposit := &models.Deposit{
		UserId:        userId,
		Currency:      currency,
		Amount:        req.Amount,
		Status:        models.DepositPending,
		TxHash:        strings.TrimSpace(req.TxHash),
		WalletAddress: strings.TrimSpace(req.WalletAddress),
		ProofImageUrl: strings.TrimSpace(req.ProofImageUrl),
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateDeposit(ctx, deposit); err != nil {
		return nil, fmt.Errorf("failed to submit deposit: %w", err)
	}
	return deposit, nil
}

// ApproveDeposit moves a pending deposit to approved and credits the user
func (s *LedgerService) ApproveDeposit(ctx context.Context, id, adminId, notes string) (*models.Deposit, error) {
	deposit, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return nil, err
	}
	if deposit.Status != models.DepositPending {
		return nil, fmt.Errorf("%w: deposit %s is %s", store.ErrAlreadyProcessed, id, deposit.Status)
	}
	return s.creditDeposit(ctx, deposit, models.DepositApproved, adminId, notes)
}

// ConfirmDeposit marks a deposit as settled. A pending deposit is credited on
// the way; an approved one was credited already and is only stamped.
func (s *LedgerService) ConfirmDeposit(ctx context.Context, id, adminId string) (*models.Deposit, error) {
	deposit, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return nil, err
	}

	switch deposit.Status {
	case models.DepositPending:
		return s.creditDeposit(ctx, deposit, models.DepositConfirmed, adminId, deposit.AdminNotes)
	case models.DepositApproved:
		now := s.now()
		reviewer := deposit.AdminId
		if reviewer == "" {
			reviewer = adminId
		}
		err := s.store.TransitionDeposit(ctx, store.DepositTransition{
			Id:          id,
			From:        models.DepositApproved,
			To:          models.DepositConfirmed,
			AdminId:     reviewer,
			AdminNotes:  deposit.AdminNotes,
			ReviewedAt:  deposit.ReviewedAt,
			ConfirmedAt: &now,
		})
		if err != nil {
			return nil, err
		}
		deposit.Status = models.DepositConfirmed
		deposit.AdminId = reviewer
		deposit.ConfirmedAt = &now
		zap.L().Info("Deposit confirmed",
			zap.String("deposit_id", id),
			zap.String("admin_id", adminId))
		return deposit, nil
	default:
		return nil, fmt.Errorf("%w: deposit %s is %s", store.ErrAlreadyProcessed, id, deposit.Status)
	}
}

func (s *LedgerService) DeclineDeposit(ctx context.Context, id, adminId, notes string) (*models.Deposit, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, fmt.Errorf("%w: notes are required to decline a deposit", store.ErrInvalidInput)
	}
	return s.closeDeposit(ctx, id, models.DepositDeclined, adminId, notes)
}

// FailDeposit marks a pending deposit whose transfer never arrived
func (s *LedgerService) FailDeposit(ctx context.Context, id, adminId, notes string) (*models.Deposit, error) {
	return s.closeDeposit(ctx, id, models.DepositFailed, adminId, notes)
}

func (s *LedgerService) closeDeposit(ctx context.Context, id, status, adminId, notes string) (*models.Deposit, error) {
	deposit, err := s.store.GetDeposit(ctx, id)
	if err != nil {
		return nil, err
	}
	if deposit.Status != models.DepositPending {
		return nil, fmt.Errorf("%w: deposit %s is %s", store.ErrAlreadyProcessed, id, deposit.Status)
	}

	now := s.now()
	err = s.store.TransitionDeposit(ctx, store.DepositTransition{
		Id:         id,
		From:       models.DepositPending,
		To:         status,
		AdminId:    adminId,
		AdminNotes: strings.TrimSpace(notes),
		ReviewedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	deposit.Status = status
	deposit.AdminId = adminId
	deposit.AdminNotes = strings.TrimSpace(notes)
	deposit.ReviewedAt = &now
	zap.L().Info("Deposit closed",
		zap.String("deposit_id", id),
		zap.String("status", status),
		zap.String("admin_id", adminId))
	return deposit, nil
}

// creditDeposit transitions a pending deposit and credits its amount. When
// the credit fails the transition is reverted.
func (s *LedgerService) creditDeposit(ctx context.Context, deposit *models.Deposit, to, adminId, notes string) (*models.Deposit, error) {
	now := s.now()
	transition := store.DepositTransition{
		Id:         deposit.Id,
		From:       models.DepositPending,
		To:         to,
		AdminId:    adminId,
		AdminNotes: strings.TrimSpace(notes),
		ReviewedAt: &now,
	}
	if to == models.DepositConfirmed {
		transition.ConfirmedAt = &now
	}
	if err := s.store.TransitionDeposit(ctx, transition); err != nil {
		return nil, err
	}

	entry, err := s.store.Credit(ctx, store.BalanceParams{
		UserId:    deposit.UserId,
		Currency:  deposit.Currency,
		Amount:    deposit.Amount,
		Reference: "deposit:" + deposit.Id,
	})
	if err != nil {
		return nil, compensate(ctx, "credit_deposit", err, func(ctx context.Context) error {
			return s.store.TransitionDeposit(ctx, store.DepositTransition{
				Id:          deposit.Id,
				From:        to,
				To:          models.DepositPending,
				AdminId:     deposit.AdminId,
				AdminNotes:  deposit.AdminNotes,
				ReviewedAt:  deposit.ReviewedAt,
				ConfirmedAt: deposit.ConfirmedAt,
			})
		}, zap.String("deposit_id", deposit.Id), zap.String("user_id", deposit.UserId))
	}
	s.mirror(ctx, entry)

	updated := *deposit
	updated.Status = to
	updated.AdminId = adminId
	updated.AdminNotes = transition.AdminNotes
	updated.ReviewedAt = transition.ReviewedAt
	updated.ConfirmedAt = transition.ConfirmedAt

	zap.L().Info("Deposit credited",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("currency", deposit.Currency),
		zap.String("amount", deposit.Amount.String()),
		zap.String("status", to),
		zap.String("admin_id", adminId))
	return &updated, nil
}

// AdminCreateDeposit records a deposit on behalf of a user. With AutoApprove
// the row is inserted as approved and credited at once; if the credit fails
// the row is removed again.
func (s *LedgerService) AdminCreateDeposit(ctx context.Context, adminId string, req models.AdminDepositRequest) (*models.Deposit, error) {
	if err := requireUser(req.UserId); err != nil {
		return nil, err
	}
	currency, err := s.currency(req.Currency)
	if err != nil {
		return nil, err
	}
	if err := requirePositive(req.Amount); err != nil {
		return nil, err
	}

	now := s.now()
	deposit := &models.Deposit{
		UserId:     req.UserId,
		Currency:   currency,
		Amount:     req.Amount,
		Status:     models.DepositPending,
		TxHash:     strings.TrimSpace(req.TxHash),
		AdminNotes: strings.TrimSpace(req.Notes),
		CreatedAt:  now,
	}
	if req.AutoApprove {
		deposit.Status = models.DepositApproved
		deposit.AdminId = adminId
		deposit.ReviewedAt = &now
	}

	if err := s.store.CreateDeposit(ctx, deposit); err != nil {
		return nil, fmt.Errorf("failed to create deposit: %w", err)
	}
	if !req.AutoApprove {
		zap.L().Info("Admin recorded pending deposit",
			zap.String("deposit_id", deposit.Id),
			zap.String("user_id", deposit.UserId),
			zap.String("admin_id", adminId))
		return deposit, nil
	}

	entry, err := s.store.Credit(ctx, store.BalanceParams{
		UserId:    deposit.UserId,
		Currency:  deposit.Currency,
		Amount:    deposit.Amount,
		Reference: "deposit:" + deposit.Id,
	})
	if err != nil {
		return nil, compensate(ctx, "credit_admin_deposit", err, func(ctx context.Context) error {
			return s.store.DeleteDeposit(ctx, deposit.Id)
		}, zap.String("deposit_id", deposit.Id), zap.String("user_id", deposit.UserId))
	}
	s.mirror(ctx, entry)

	zap.L().Info("Admin deposit credited",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("currency", deposit.Currency),
		zap.String("amount", deposit.Amount.String()),
		zap.String("admin_id", adminId))
	return deposit, nil
}

func (s *LedgerService) GetDeposit(ctx context.Context, id string) (*models.Deposit, error) {
	return s.store.GetDeposit(ctx, id)
}

func (s *LedgerService) ListDeposits(ctx context.Context, filter store.DepositFilter) ([]models.Deposit, error) {
	deposits, err := s.store.ListDeposits(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	return deposits, nil
}
