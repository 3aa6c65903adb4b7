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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is the profile row backing an authenticated account
type User struct {
	Id        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Balance holds the three pools for one user and currency
type Balance struct {
	Id           string          `db:"id" json:"id,omitempty"`
	UserId       string          `db:"user_id" json:"user_id"`
	Currency     string          `db:"currency" json:"currency"`
	Available    decimal.Decimal `db:"available" json:"available"`
	Staked       decimal.Decimal `db:"staked" json:"staked"`
	TotalRewards decimal.Decimal `db:"total_rewards" json:"total_rewards"`
	Version      int64           `db:"version" json:"version"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Ledger entry types
const (
	EntryCredit          = "credit"
	EntryDebit           = "debit"
	EntryDebitRewards    = "debit_rewards"
	EntryStake           = "stake"
	EntryRelease         = "release"
	EntryReward          = "reward"
	EntryAdminAdjustment = "admin_adjustment"
)

// LedgerEntry is the immutable audit record written with every balance mutation
type LedgerEntry struct {
	Id             string          `db:"id" json:"id"`
	UserId         string          `db:"user_id" json:"user_id"`
	Currency       string          `db:"currency" json:"currency"`
	EntryType      string          `db:"entry_type" json:"entry_type"`
	AvailableDelta decimal.Decimal `db:"available_delta" json:"available_delta"`
	StakedDelta    decimal.Decimal `db:"staked_delta" json:"staked_delta"`
	RewardsDelta   decimal.Decimal `db:"rewards_delta" json:"rewards_delta"`
	AvailableAfter decimal.Decimal `db:"available_after" json:"available_after"`
	StakedAfter    decimal.Decimal `db:"staked_after" json:"staked_after"`
	RewardsAfter   decimal.Decimal `db:"rewards_after" json:"rewards_after"`
	Reference      string          `db:"reference" json:"reference,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Deposit statuses
const (
	DepositPending   = "pending"
	DepositApproved  = "approved"
	DepositDeclined  = "declined"
	DepositConfirmed = "confirmed"
	DepositFailed    = "failed"
)

// Deposit is a claimed incoming transfer awaiting admin review
type Deposit struct {
	Id            string          `db:"id" json:"id"`
	UserId        string          `db:"user_id" json:"user_id"`
	Currency      string          `db:"currency" json:"currency"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        string          `db:"status" json:"status"`
	TxHash        string          `db:"tx_hash" json:"tx_hash,omitempty"`
	WalletAddress string          `db:"wallet_address" json:"wallet_address,omitempty"`
	ProofImageUrl string          `db:"proof_image_url" json:"proof_image_url,omitempty"`
	AdminId       string          `db:"admin_id" json:"admin_id,omitempty"`
	AdminNotes    string          `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	ReviewedAt    *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ConfirmedAt   *time.Time      `db:"confirmed_at" json:"confirmed_at,omitempty"`
}

// Credited reports whether the deposit amount has reached the available pool
func (d Deposit) Credited() bool {
	return d.Status == DepositApproved || d.Status == DepositConfirmed
}

// StakingPlan is an admin-managed staking product
type StakingPlan struct {
	Id         string          `db:"id" json:"id"`
	Name       string          `db:"name" json:"name"`
	Currency   string          `db:"currency" json:"currency"`
	Apy        decimal.Decimal `db:"apy" json:"apy"`
	LockupDays int             `db:"lockup_days" json:"lockup_days"`
	MinStake   decimal.Decimal `db:"min_stake" json:"min_stake"`
	IsActive   bool            `db:"is_active" json:"is_active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// Stake statuses
const (
	StakeActive    = "active"
	StakeCompleted = "completed"
	StakeCancelled = "cancelled"
)

// Stake is principal locked against a plan. Apy and LockupDays are copied
// from the plan when the stake is opened.
type Stake struct {
	Id            string          `db:"id" json:"id"`
	UserId        string          `db:"user_id" json:"user_id"`
	PlanId        string          `db:"plan_id" json:"plan_id"`
	Currency      string          `db:"currency" json:"currency"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Apy           decimal.Decimal `db:"apy" json:"apy"`
	LockupDays    int             `db:"lockup_days" json:"lockup_days"`
	RewardsEarned decimal.Decimal `db:"rewards_earned" json:"rewards_earned"`
	Status        string          `db:"status" json:"status"`
	StartDate     time.Time       `db:"start_date" json:"start_date"`
	EndDate       *time.Time      `db:"end_date" json:"end_date,omitempty"`
	LastRewardAt  *time.Time      `db:"last_reward_at" json:"last_reward_at,omitempty"`
	CancelReason  string          `db:"cancel_reason" json:"cancel_reason,omitempty"`
	Version       int64           `db:"version" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// AccruedSince returns the instant rewards were last settled for the stake
func (s Stake) AccruedSince() time.Time {
	if s.LastRewardAt != nil {
		return *s.LastRewardAt
	}
	return s.StartDate
}

// Withdrawal types
const (
	WithdrawalTypeBalance = "balance"
	WithdrawalTypeProfit  = "profit"
)

// Withdrawal statuses
const (
	WithdrawalPending   = "pending"
	WithdrawalApproved  = "approved"
	WithdrawalRejected  = "rejected"
	WithdrawalCompleted = "completed"
)

// Withdrawal approval conditions
const (
	ConditionNone            = "none"
	ConditionMinimumStake    = "minimum_stake"
	ConditionMinimumDeposits = "minimum_deposits"
	ConditionAccountAge      = "account_age"
)

// Withdrawal is an outgoing transfer request
type Withdrawal struct {
	Id                string          `db:"id" json:"id"`
	UserId            string          `db:"user_id" json:"user_id"`
	WithdrawalType    string          `db:"withdrawal_type" json:"withdrawal_type"`
	Currency          string          `db:"currency" json:"currency"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	WalletAddress     string          `db:"wallet_address" json:"wallet_address"`
	Status            string          `db:"status" json:"status"`
	ApprovalCondition string          `db:"approval_condition" json:"approval_condition"`
	ConditionMet      bool            `db:"condition_met" json:"condition_met"`
	AdminId           string          `db:"admin_id" json:"admin_id,omitempty"`
	AdminNotes        string          `db:"admin_notes" json:"admin_notes,omitempty"`
	PayoutId          string          `db:"payout_id" json:"payout_id,omitempty"`
	RequestedAt       time.Time       `db:"requested_at" json:"requested_at"`
	ReviewedAt        *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ProcessedAt       *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// Processable reports whether the withdrawal may be debited now
func (w Withdrawal) Processable() bool {
	return w.Status == WithdrawalApproved && w.ConditionMet
}
