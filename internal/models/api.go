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
	"github.com/shopspring/decimal"
)

// SubmitDepositRequest is a user's claim of an incoming transfer
type SubmitDepositRequest struct {
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	TxHash        string          `json:"tx_hash,omitempty"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	ProofImageUrl string          `json:"proof_image_url,omitempty"`
}

// AdminDepositRequest records a deposit on behalf of a user
type AdminDepositRequest struct {
	UserId      string          `json:"-"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	TxHash      string          `json:"tx_hash,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	AutoApprove bool            `json:"auto_approve"`
}

// ReviewRequest carries admin notes for approve/decline/reject actions
type ReviewRequest struct {
	Notes string `json:"notes"`
}

// CreateStakeRequest opens a stake against a plan
type CreateStakeRequest struct {
	PlanId string          `json:"plan_id"`
	Amount decimal.Decimal `json:"amount"`
}

// CancelStakeRequest closes an active stake early
type CancelStakeRequest struct {
	Reason string `json:"reason"`
}

// PlanRequest creates a plan. On update, nil fields are left unchanged.
type PlanRequest struct {
	Name       *string          `json:"name,omitempty"`
	Currency   *string          `json:"currency,omitempty"`
	Apy        *decimal.Decimal `json:"apy,omitempty"`
	LockupDays *int             `json:"lockup_days,omitempty"`
	MinStake   *decimal.Decimal `json:"min_stake,omitempty"`
	IsActive   *bool            `json:"is_active,omitempty"`
}

// WithdrawalRequest is a user's request to move funds off the platform
type WithdrawalRequest struct {
	WithdrawalType string          `json:"withdrawal_type"`
	Currency       string          `json:"currency"`
	Amount         decimal.Decimal `json:"amount"`
	WalletAddress  string          `json:"wallet_address"`
}

// ApproveWithdrawalRequest approves a withdrawal under a condition
type ApproveWithdrawalRequest struct {
	Condition string `json:"approval_condition"`
	Notes     string `json:"notes,omitempty"`
}

// WithdrawalApproval is the outcome of an approval. Processed is false when
// the condition is not yet met or the debit failed; ProcessError says which.
type WithdrawalApproval struct {
	Withdrawal   *Withdrawal `json:"withdrawal"`
	Processed    bool        `json:"processed"`
	ProcessError string      `json:"process_error,omitempty"`
}

// ConditionStatus is a read-only evaluation of a withdrawal's condition
type ConditionStatus struct {
	WithdrawalId string `json:"withdrawal_id"`
	Condition    string `json:"approval_condition"`
	Met          bool   `json:"met"`
	Error        string `json:"error,omitempty"`
}

// AdjustBalanceRequest overrides pools directly. Nil fields are untouched.
type AdjustBalanceRequest struct {
	Available    *decimal.Decimal `json:"available,omitempty"`
	Staked       *decimal.Decimal `json:"staked,omitempty"`
	TotalRewards *decimal.Decimal `json:"total_rewards,omitempty"`
}

// AccrualResult summarises one reward accrual pass
type AccrualResult struct {
	Accrued      int             `json:"accrued"`
	Completed    int             `json:"completed"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	TotalRewards decimal.Decimal `json:"total_rewards"`
}

// SweepResult summarises one withdrawal condition sweep
type SweepResult struct {
	Checked   int `json:"checked"`
	Met       int `json:"met"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// PayoutResult summarises one payout dispatch pass
type PayoutResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Portfolio and Wallet identify where payouts are sent from on Prime.
type Portfolio struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}

type Wallet struct {
	Id     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Type   string `json:"type"`
}
