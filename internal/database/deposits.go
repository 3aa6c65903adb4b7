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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func scanDeposit(row interface{ Scan(...any) error }) (*models.Deposit, error) {
	var d models.Deposit
	var reviewedAt, confirmedAt sql.NullTime
	err := row.Scan(&d.Id, &d.UserId, &d.Currency, &d.Amount, &d.Status, &d.TxHash, &d.WalletAddress,
		&d.ProofImageUrl, &d.AdminId, &d.AdminNotes, &d.CreatedAt, &reviewedAt, &confirmedAt)
	if err != nil {
		return nil, err
	}
	d.ReviewedAt = timePtr(reviewedAt)
	d.ConfirmedAt = timePtr(confirmedAt)
	return &d, nil
}

func (s *Service) CreateDeposit(ctx context.Context, deposit *models.Deposit) error {
	if deposit.Id == "" {
		deposit.Id = uuid.New().String()
	}
	if deposit.CreatedAt.IsZero() {
		deposit.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, queryInsertDeposit,
		deposit.Id, deposit.UserId, deposit.Currency, deposit.Amount, deposit.Status,
		deposit.TxHash, deposit.WalletAddress, deposit.ProofImageUrl,
		deposit.AdminId, deposit.AdminNotes, deposit.CreatedAt.UTC(),
		timeArg(deposit.ReviewedAt), timeArg(deposit.ConfirmedAt))
	if err != nil {
		return fmt.Errorf("unable to insert deposit: %w", err)
	}

	zap.L().Info("Deposit recorded",
		zap.String("deposit_id", deposit.Id),
		zap.String("user_id", deposit.UserId),
		zap.String("currency", deposit.Currency),
		zap.String("amount", deposit.Amount.String()),
		zap.String("status", deposit.Status))
	return nil
}

func (s *Service) GetDeposit(ctx context.Context, id string) (*models.Deposit, error) {
	deposit, err := scanDeposit(s.db.QueryRowContext(ctx, selectDeposit+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: deposit %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query deposit: %w", err)
	}
	return deposit, nil
}

func (s *Service) ListDeposits(ctx context.Context, filter store.DepositFilter) ([]models.Deposit, error) {
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

	query := selectDeposit
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit, offset := page(filter.Limit, filter.Offset)
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query deposits: %w", err)
	}
	defer closeRows(rows)

	var deposits []models.Deposit
	for rows.Next() {
		d, err := scanDeposit(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan deposit row: %w", err)
		}
		deposits = append(deposits, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deposit rows: %w", err)
	}
	return deposits, nil
}

// TransitionDeposit applies a status change only while the deposit is still
// in t.From. A deposit in any other state yields ErrAlreadyProcessed.
func (s *Service) TransitionDeposit(ctx context.Context, t store.DepositTransition) error {
	err := s.guardedUpdate(ctx, "deposit", t.Id, queryDepositExists, store.ErrAlreadyProcessed,
		queryTransitionDeposit,
		t.To, t.AdminId, t.AdminNotes, timeArg(t.ReviewedAt), timeArg(t.ConfirmedAt), t.Id, t.From)
	if err != nil {
		return err
	}

	zap.L().Info("Deposit status changed",
		zap.String("deposit_id", t.Id),
		zap.String("from", t.From),
		zap.String("to", t.To),
		zap.String("admin_id", t.AdminId))
	return nil
}

func (s *Service) DeleteDeposit(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteDeposit, id)
	if err != nil {
		return fmt.Errorf("unable to delete deposit: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: deposit %s", store.ErrNotFound, id)
	}
	zap.L().Info("Deposit deleted", zap.String("deposit_id", id))
	return nil
}

// SumCreditedDeposits totals approved and confirmed deposits per currency
func (s *Service) SumCreditedDeposits(ctx context.Context, userId string) (map[string]decimal.Decimal, error) {
	return s.sumByCurrency(ctx, queryCreditedDeposits, userId)
}

func (s *Service) sumByCurrency(ctx context.Context, query string, args ...any) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query amounts: %w", err)
	}
	defer closeRows(rows)

	totals := make(map[string]decimal.Decimal)
	for rows.Next() {
		var currency string
		var amount decimal.Decimal
		if err := rows.Scan(&currency, &amount); err != nil {
			return nil, fmt.Errorf("unable to scan amount row: %w", err)
		}
		totals[currency] = totals[currency].Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating amount rows: %w", err)
	}
	return totals, nil
}
