package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func scanPlan(row interface{ Scan(...any) error }) (*models.StakingPlan, error) {
	var p models.StakingPlan
	err := row.Scan(&p.Id, &p.Name, &p.Currency, &p.Apy, &p.LockupDays, &p.MinStake, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Service) CreatePlan(ctx context.Context, plan *models.StakingPlan) error {
	if plan.Id == "" {
		plan.Id = uuid.New().String()
	}
	now := time.Now().UTC()
	plan.CreatedAt, plan.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, queryInsertPlan,
		plan.Id, plan.Name, plan.Currency, plan.Apy, plan.LockupDays, plan.MinStake, plan.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("unable to insert staking plan: %w", err)
	}

	zap.L().Info("Staking plan created",
		zap.String("plan_id", plan.Id),
		zap.String("name", plan.Name),
		zap.String("currency", plan.Currency),
		zap.String("apy", plan.Apy.String()),
		zap.Int("lockup_days", plan.LockupDays))
	return nil
}

func (s *Service) GetPlan(ctx context.Context, id string) (*models.StakingPlan, error) {
	plan, err := scanPlan(s.db.QueryRowContext(ctx, selectPlan+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: staking plan %s", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to query staking plan: %w", err)
	}
	return plan, nil
}

func (s *Service) ListPlans(ctx context.Context, activeOnly bool) ([]models.StakingPlan, error) {
	query := selectPlan
	if activeOnly {
		query += " WHERE is_active = 1"
	}
	query += " ORDER BY currency, lockup_days"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("unable to query staking plans: %w", err)
	}
	defer closeRows(rows)

	var plans []models.StakingPlan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan staking plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staking plan rows: %w", err)
	}
	return plans, nil
}

func (s *Service) UpdatePlan(ctx context.Context, plan *models.StakingPlan) error {
	plan.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, queryUpdatePlan,
		plan.Name, plan.Currency, plan.Apy, plan.LockupDays, plan.MinStake, plan.IsActive, plan.UpdatedAt, plan.Id)
	if err != nil {
		return fmt.Errorf("unable to update staking plan: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: staking plan %s", store.ErrNotFound, plan.Id)
	}

	zap.L().Info("Staking plan updated", zap.String("plan_id", plan.Id), zap.Bool("is_active", plan.IsActive))
	return nil
}

// DeletePlan removes a plan that no active stake references. The check and
// the delete are one statement.
func (s *Service) DeletePlan(ctx context.Context, id string) error {
	err := s.guardedUpdate(ctx, "staking plan", id, queryPlanExists, store.ErrPlanInUse, queryDeleteUnusedPlan, id, id)
	if err != nil {
		return err
	}
	zap.L().Info("Staking plan deleted", zap.String("plan_id", id))
	return nil
}
