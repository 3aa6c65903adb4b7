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

package store

import (
	"context"
	"time"

	"staking-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// BalanceParams identifies a single-pool balance mutation.
type BalanceParams struct {
	UserId    string
	Currency  string
	Amount    decimal.Decimal
	Reference string
}

// SetBalanceParams overrides pools directly. Nil values are left unchanged.
type SetBalanceParams struct {
	UserId       string
	Currency     string
	Available    *decimal.Decimal
	Staked       *decimal.Decimal
	TotalRewards *decimal.Decimal
	Reference    string
}

// CreateUserParams contains the parameters for creating a profile.
type CreateUserParams struct {
	Id        string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time // zero means now
}

// DepositFilter narrows deposit listings. Empty fields match everything.
type DepositFilter struct {
	UserId string
	Status string
	Limit  int
	Offset int
}

// DepositTransition moves a deposit from one status to another only when
// the stored status still equals From. Review fields are overwritten.
type DepositTransition struct {
	Id          string
	From        string
	To          string
	AdminId     string
	AdminNotes  string
	ReviewedAt  *time.Time
	ConfirmedAt *time.Time
}

// StakeFilter narrows stake listings. Empty fields match everything.
// A zero Limit returns 100 rows and a negative one returns all of them.
type StakeFilter struct {
	UserId string
	PlanId string
	Status string
	Limit  int
	Offset int
}

// StakeTransition moves a stake between statuses only when the stored
// status still equals From.
type StakeTransition struct {
	Id           string
	From         string
	To           string
	EndDate      *time.Time
	CancelReason string
}

// StakeRewardUpdate overwrites the reward fields of a stake only when its
// version still equals Version.
type StakeRewardUpdate struct {
	Id            string
	Version       int64
	RewardsEarned decimal.Decimal
	LastRewardAt  *time.Time
}

// WithdrawalReferencePrefix prefixes the ledger entry reference of a
// withdrawal debit; the withdrawal id follows it.
const WithdrawalReferencePrefix = "withdrawal:"

// WithdrawalFilter narrows withdrawal listings. Empty fields match everything.
type WithdrawalFilter struct {
	UserId string
	Status string
	// AwaitingCondition selects approved withdrawals whose condition is unmet.
	AwaitingCondition bool
	// AwaitingPayout selects completed withdrawals without a payout id
	// whose debit ledger entry has committed.
	AwaitingPayout bool
	Limit          int
	Offset         int
}

// WithdrawalReview approves or rejects a pending withdrawal.
type WithdrawalReview struct {
	Id           string
	Status       string
	Condition    string
	ConditionMet bool
	AdminId      string
	AdminNotes   string
	ReviewedAt   time.Time
}

// LedgerStore defines the persistence contract for balances, deposits,
// stakes, staking plans and withdrawals.
//
// Every status change is a conditional update: it applies only while the
// row is still in the expected state and returns ErrAlreadyProcessed otherwise.
type LedgerStore interface {
	// --- Users ---
	GetUsers(ctx context.Context) ([]models.User, error)
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	EnsureUser(ctx context.Context, userId, email string) error

	// --- Balances ---
	GetBalance(ctx context.Context, userId, currency string) (*models.Balance, error)
	GetAllBalances(ctx context.Context, userId string) ([]models.Balance, error)
	Credit(ctx context.Context, params BalanceParams) (*models.LedgerEntry, error)
	Debit(ctx context.Context, params BalanceParams) (*models.LedgerEntry, error)
	DebitRewards(ctx context.Context, params BalanceParams) (*models.LedgerEntry, error)
	MoveToStake(ctx context.Context, params BalanceParams) (*models.LedgerEntry, error)
	ReleaseStake(ctx context.Context, params BalanceParams) (*models.LedgerEntry, error)
	AccrueReward(ctx context.Context, params BalanceParams) (*models.LedgerEntry, error)
	SetBalance(ctx context.Context, params SetBalanceParams) (*models.LedgerEntry, error)
	ListLedgerEntries(ctx context.Context, userId, currency string, limit, offset int) ([]models.LedgerEntry, error)

	// --- Deposits ---
	CreateDeposit(ctx context.Context, deposit *models.Deposit) error
	GetDeposit(ctx context.Context, id string) (*models.Deposit, error)
	ListDeposits(ctx context.Context, filter DepositFilter) ([]models.Deposit, error)
	TransitionDeposit(ctx context.Context, t DepositTransition) error
	DeleteDeposit(ctx context.Context, id string) error
	SumCreditedDeposits(ctx context.Context, userId string) (map[string]decimal.Decimal, error)

	// --- Staking plans ---
	CreatePlan(ctx context.Context, plan *models.StakingPlan) error
	GetPlan(ctx context.Context, id string) (*models.StakingPlan, error)
	ListPlans(ctx context.Context, activeOnly bool) ([]models.StakingPlan, error)
	UpdatePlan(ctx context.Context, plan *models.StakingPlan) error
	DeletePlan(ctx context.Context, id string) error

	// --- Stakes ---
	CreateStake(ctx context.Context, stake *models.Stake) error
	GetStake(ctx context.Context, id string) (*models.Stake, error)
	ListStakes(ctx context.Context, filter StakeFilter) ([]models.Stake, error)
	TransitionStake(ctx context.Context, t StakeTransition) error
	UpdateStakeRewards(ctx context.Context, u StakeRewardUpdate) error
	DeleteStake(ctx context.Context, id string) error
	SumActiveStakes(ctx context.Context, userId string) (map[string]decimal.Decimal, error)

	// --- Withdrawals ---
	CreateWithdrawal(ctx context.Context, withdrawal *models.Withdrawal) error
	GetWithdrawal(ctx context.Context, id string) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, filter WithdrawalFilter) ([]models.Withdrawal, error)
	ReviewWithdrawal(ctx context.Context, review WithdrawalReview) error
	SetWithdrawalConditionMet(ctx context.Context, id string) error
	CompleteWithdrawal(ctx context.Context, id string, processedAt time.Time) error
	RevertWithdrawalCompletion(ctx context.Context, id string) error
	SetWithdrawalPayout(ctx context.Context, id, payoutId string) error

	// --- Lifecycle ---
	Ping(ctx context.Context) error
	Close()
}
