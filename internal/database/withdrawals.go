package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanWithdrawal(row interface{ Scan(...any) error }) (*models.Withdrawal, error) {
	var w models.Withdrawal
	var reviewedAt, processedAt sql.NullTime
	err := row.Scan(&w.Id, &w.UserId, &w.WithdrawalType, &w.Currency, &w.Amount, &w.WalletAddress, &w.Status,
		&w.ApprovalCondition, &w.ConditionMet, &w.AdminId, &w.AdminNotes, &w.PayoutId,
		&w.RequestedAt, &reviewedAt, &processedAt)
	if err != nil {
		return nil, err
	}
	w.ReviewedAt = timePtr(reviewedAt)
	w.ProcessedAt = timePtr(processedAt)
	return &w, nil
}

func (s *Service) CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.Id == "" {
		withdrawal.Id = uuid.New().String()
	}
	if withdrawal.RequestedAt.IsZero() {
		withdrawal.RequestedAt = time.Now().UTC()
	}
	if withdrawal.ApprovalCondition == "" {
		withdrawal.ApprovalCondition = models.ConditionNone
	}

	_, err := s.db.ExecContext(ctx, queryInsertWithdrawal,
		withdrawal.Id, withdrawal.UserId, withdrawal.WithdrawalType, withdrawal.Currency, withdrawal.Amount,
		withdrawal.WalletAddress, withdrawal.Status, withdrawal.ApprovalCondition, withdrawal.ConditionMet,
		withdrawal.AdminId, withdrawal.AdminNotes, withdrawal.PayoutId, withdrawal.RequestedAt.UTC(),
		timeArg(withdrawal.ReviewedAt), timeArg(withdrawal.ProcessedAt))
	if err != nil {
		return fmt.Errorf("unable to insert withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal recorded",
		zap.String("withdrawal_id", withdrawal.Id),
		zap.String("user_id", withdrawal.UserId),
		zap.String("type", withdrawal.WithdrawalType),
		zap.String("currency", withdrawal.Currency),
		zap.String("amount", withdrawal.Amount.String()))
	return nil
}

func (s *Service) GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error) {
	w, err := scanWithdrawal(s.db.QueryRowContext(ctx, selectWithdrawal+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: withdrawal %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query withdrawal: %w", err)
	}
	return w, nil
}

func (s *Service) ListWithdrawals(ctx context.Context, filter store.WithdrawalFilter) ([]models.Withdrawal, error) {
	var where []string
	var args []any
	if filter.UserId != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AwaitingCondition {
		where = append(where, "status = 'approved'", "approval_condition != 'none'", "condition_met = 0")
	}
	if filter.AwaitingPayout {
		where = append(where, "status = 'completed'", "payout_id = ''", withdrawalDebited)
		args = append(args, store.WithdrawalReferencePrefix)
	}

	query := selectWithdrawal
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := page(filter.Limit, filter.Offset)
	query += " ORDER BY requested_at LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query withdrawals: %w", err)
	}
	defer closeRows(rows)

	var withdrawals []models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan withdrawal row: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawal rows: %w", err)
	}
	return withdrawals, nil
}

// ReviewWithdrawal moves a pending withdrawal to approved or rejected
func (s *Service) ReviewWithdrawal(ctx context.Context, review store.WithdrawalReview) error {
	if review.Status != models.WithdrawalApproved && review.Status != models.WithdrawalRejected {
		return fmt.Errorf("%w: review status %q", store.ErrInvalidInput, review.Status)
	}

	err := s.guardedUpdate(ctx, "withdrawal", review.Id, queryWithdrawalExists, store.ErrAlreadyProcessed,
		queryReviewWithdrawal,
		review.Status, review.Condition, review.ConditionMet, review.AdminId, review.AdminNotes,
		review.ReviewedAt.UTC(), review.Id)
	if err != nil {
		return err
	}

	zap.L().Info("Withdrawal reviewed",
		zap.String("withdrawal_id", review.Id),
		zap.String("status", review.Status),
		zap.String("condition", review.Condition),
		zap.Bool("condition_met", review.ConditionMet),
		zap.String("admin_id", review.AdminId))
	return nil
}

func (s *Service) SetWithdrawalConditionMet(ctx context.Context, id string) error {
	return s.guardedUpdate(ctx, "withdrawal", id, queryWithdrawalExists, store.ErrAlreadyProcessed,
		querySetWithdrawalConditionMet, id)
}

// CompleteWithdrawal marks an approved withdrawal whose condition holds as completed
func (s *Service) CompleteWithdrawal(ctx context.Context, id string, processedAt time.Time) error {
	return s.guardedUpdate(ctx, "withdrawal", id, queryWithdrawalExists, store.ErrAlreadyProcessed,
		queryCompleteWithdrawal, processedAt.UTC(), id)
}

// RevertWithdrawalCompletion puts a completed withdrawal back to approved.
// Withdrawals already paid out cannot be reverted.
func (s *Service) RevertWithdrawalCompletion(ctx context.Context, id string) error {
	return s.guardedUpdate(ctx, "withdrawal", id, queryWithdrawalExists, store.ErrAlreadyProcessed,
		queryRevertWithdrawalCompletion, id)
}

func (s *Service) SetWithdrawalPayout(ctx context.Context, id, payoutId string) error {
	if payoutId == "" {
		return fmt.Errorf("%w: payout id is required", store.ErrInvalidInput)
	}
	return s.guardedUpdate(ctx, "withdrawal", id, queryWithdrawalExists, store.ErrAlreadyProcessed,
		querySetWithdrawalPayout, payoutId, id)
}
