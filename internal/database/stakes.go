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

func scanStake(row interface{ Scan(...any) error }) (*models.Stake, error) {
	var st models.Stake
	var endDate, lastRewardAt sql.NullTime
	err := row.Scan(&st.Id, &st.UserId, &st.PlanId, &st.Currency, &st.Amount, &st.Apy, &st.LockupDays,
		&st.RewardsEarned, &st.Status, &st.StartDate, &endDate, &lastRewardAt, &st.CancelReason,
		&st.Version, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	st.StartDate = st.StartDate.UTC()
	st.EndDate = timePtr(endDate)
	st.LastRewardAt = timePtr(lastRewardAt)
	return &st, nil
}

func (s *Service) CreateStake(ctx context.Context, stake *models.Stake) error {
	if stake.Id == "" {
		stake.Id = uuid.New().String()
	}
	if stake.CreatedAt.IsZero() {
		stake.CreatedAt = time.Now().UTC()
	}
	stake.Version = 1

	_, err := s.db.ExecContext(ctx, queryInsertStake,
		stake.Id, stake.UserId, stake.PlanId, stake.Currency, stake.Amount, stake.Apy, stake.LockupDays,
		stake.RewardsEarned, stake.Status, stake.StartDate.UTC(), timeArg(stake.EndDate),
		timeArg(stake.LastRewardAt), stake.CancelReason, stake.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert stake: %w", err)
	}

	zap.L().Info("Stake recorded",
		zap.String("stake_id", stake.Id),
		zap.String("user_id", stake.UserId),
		zap.String("plan_id", stake.PlanId),
		zap.String("currency", stake.Currency),
		zap.String("amount", stake.Amount.String()))
	return nil
}

func (s *Service) GetStake(ctx context.Context, id string) (*models.Stake, error) {
	stake, err := scanStake(s.db.QueryRowContext(ctx, selectStake+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: stake %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query stake: %w", err)
	}
	return stake, nil
}

func (s *Service) ListStakes(ctx context.Context, filter store.StakeFilter) ([]models.Stake, error) {
	var where []string
	var args []any
	if filter.UserId != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.PlanId != "" {
		where = append(where, "plan_id = ?")
		args = append(args, filter.PlanId)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := selectStake
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_date, id"
	if filter.Limit > 0 {
		limit, offset := page(filter.Limit, filter.Offset)
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query stakes: %w", err)
	}
	defer closeRows(rows)

	var stakes []models.Stake
	for rows.Next() {
		st, err := scanStake(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan stake row: %w", err)
		}
		stakes = append(stakes, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stake rows: %w", err)
	}
	return stakes, nil
}

// TransitionStake applies a status change only while the stake is still in t.From
func (s *Service) TransitionStake(ctx context.Context, t store.StakeTransition) error {
	err := s.guardedUpdate(ctx, "stake", t.Id, queryStakeExists, store.ErrAlreadyProcessed,
		queryTransitionStake, t.To, timeArg(t.EndDate), t.CancelReason, t.Id, t.From)
	if err != nil {
		return err
	}

	zap.L().Info("Stake status changed",
		zap.String("stake_id", t.Id),
		zap.String("from", t.From),
		zap.String("to", t.To))
	return nil
}

// UpdateStakeRewards writes accrued rewards guarded by the stake version, so
// two accrual passes racing on one stake apply at most one increment.
func (s *Service) UpdateStakeRewards(ctx context.Context, u store.StakeRewardUpdate) error {
	return s.guardedUpdate(ctx, "stake", u.Id, queryStakeExists, store.ErrConcurrentModification,
		queryUpdateStakeRewards, u.RewardsEarned, timeArg(u.LastRewardAt), u.Id, u.Version)
}

func (s *Service) DeleteStake(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, queryDeleteStake, id)
	if err != nil {
		return fmt.Errorf("unable to delete stake: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: stake %s", store.ErrNotFound, id)
	}
	zap.L().Info("Stake deleted", zap.String("stake_id", id))
	return nil
}

// SumActiveStakes totals active stake principal per currency
func (s *Service) SumActiveStakes(ctx context.Context, userId string) (map[string]decimal.Decimal, error) {
	return s.sumByCurrency(ctx, queryActiveStakeAmounts, userId)
}
