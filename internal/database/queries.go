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

package database

const (
	// User queries
	queryGetActiveUsers = `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE active = 1
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT id, name, email, role, created_at, updated_at
		FROM users
		WHERE email = ? AND active = 1`

	// Balance queries
	queryGetBalance = `
		SELECT id, user_id, currency, available, staked, total_rewards, version, updated_at
		FROM balances
		WHERE user_id = ? AND currency = ?`

	queryGetAllBalances = `
		SELECT id, user_id, currency, available, staked, total_rewards, version, updated_at
		FROM balances
		WHERE user_id = ?
		ORDER BY currency`

	queryInsertBalance = `
		INSERT INTO balances (id, user_id, currency, available, staked, total_rewards, version, updated_at)
		VALUES (?, ?, ?, '0', '0', '0', 1, ?)
		ON CONFLICT(user_id, currency) DO NOTHING`

	queryUpdateBalance = `
		UPDATE balances
		SET available = ?, staked = ?, total_rewards = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (
			id, user_id, currency, entry_type,
			available_delta, staked_delta, rewards_delta,
			available_after, staked_after, rewards_after,
			reference, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryListLedgerEntries = `
		SELECT id, user_id, currency, entry_type,
		       available_delta, staked_delta, rewards_delta,
		       available_after, staked_after, rewards_after,
		       reference, created_at
		FROM ledger_entries
		WHERE user_id = ? AND currency = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Deposit queries
	queryInsertDeposit = `
		INSERT INTO deposits (
			id, user_id, currency, amount, status, tx_hash, wallet_address, proof_image_url,
			admin_id, admin_notes, created_at, reviewed_at, confirmed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectDeposit = `
		SELECT id, user_id, currency, amount, status, tx_hash, wallet_address, proof_image_url,
		       admin_id, admin_notes, created_at, reviewed_at, confirmed_at
		FROM deposits`

	queryTransitionDeposit = `
		UPDATE deposits
		SET status = ?, admin_id = ?, admin_notes = ?, reviewed_at = ?, confirmed_at = ?
		WHERE id = ? AND status = ?`

	queryDeleteDeposit = `DELETE FROM deposits WHERE id = ?`

	queryCreditedDeposits = `
		SELECT currency, amount
		FROM deposits
		WHERE user_id = ? AND status IN ('approved', 'confirmed')`

	// Staking plan queries
	queryInsertPlan = `
		INSERT INTO staking_plans (id, name, currency, apy, lockup_days, min_stake, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectPlan = `
		SELECT id, name, currency, apy, lockup_days, min_stake, is_active, created_at, updated_at
		FROM staking_plans`

	queryUpdatePlan = `
		UPDATE staking_plans
		SET name = ?, currency = ?, apy = ?, lockup_days = ?, min_stake = ?, is_active = ?, updated_at = ?
		WHERE id = ?`

	queryDeleteUnusedPlan = `
		DELETE FROM staking_plans
		WHERE id = ?
		  AND NOT EXISTS (SELECT 1 FROM stakes WHERE plan_id = ? AND status = 'active')`

	queryPlanExists = `SELECT 1 FROM staking_plans WHERE id = ?`

	// Stake queries
	queryInsertStake = `
		INSERT INTO stakes (
			id, user_id, plan_id, currency, amount, apy, lockup_days, rewards_earned,
			status, start_date, end_date, last_reward_at, cancel_reason, version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?)`

	selectStake = `
		SELECT id, user_id, plan_id, currency, amount, apy, lockup_days, rewards_earned,
		       status, start_date, end_date, last_reward_at, cancel_reason, version, created_at
		FROM stakes`

	queryTransitionStake = `
		UPDATE stakes
		SET status = ?, end_date = ?, cancel_reason = ?, version = version + 1
		WHERE id = ? AND status = ?`

	queryUpdateStakeRewards = `
		UPDATE stakes
		SET rewards_earned = ?, last_reward_at = ?, version = version + 1
		WHERE id = ? AND version = ?`

	queryDeleteStake = `DELETE FROM stakes WHERE id = ?`

	queryStakeExists = `SELECT 1 FROM stakes WHERE id = ?`

	queryActiveStakeAmounts = `
		SELECT currency, amount
		FROM stakes
		WHERE user_id = ? AND status = 'active'`

	// Withdrawal queries
	queryInsertWithdrawal = `
		INSERT INTO withdrawals (
			id, user_id, withdrawal_type, currency, amount, wallet_address, status,
			approval_condition, condition_met, admin_id, admin_notes, payout_id,
			requested_at, reviewed_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectWithdrawal = `
		SELECT id, user_id, withdrawal_type, currency, amount, wallet_address, status,
		       approval_condition, condition_met, admin_id, admin_notes, payout_id,
		       requested_at, reviewed_at, processed_at
		FROM withdrawals`

	queryReviewWithdrawal = `
		UPDATE withdrawals
		SET status = ?, approval_condition = ?, condition_met = ?, admin_id = ?, admin_notes = ?, reviewed_at = ?
		WHERE id = ? AND status = 'pending'`

	querySetWithdrawalConditionMet = `
		UPDATE withdrawals
		SET condition_met = 1
		WHERE id = ? AND status = 'approved' AND condition_met = 0`

	queryCompleteWithdrawal = `
		UPDATE withdrawals
		SET status = 'completed', processed_at = ?
		WHERE id = ? AND status = 'approved' AND condition_met = 1`

	// withdrawalDebited holds once the debit for a completed withdrawal has
	// committed. Binds the reference prefix.
	withdrawalDebited = `EXISTS (
		SELECT 1 FROM ledger_entries e
		WHERE e.reference = ? || withdrawals.id)`

	queryRevertWithdrawalCompletion = `
		UPDATE withdrawals
		SET status = 'approved', processed_at = NULL
		WHERE id = ? AND status = 'completed' AND payout_id = ''`

	querySetWithdrawalPayout = `
		UPDATE withdrawals
		SET payout_id = ?
		WHERE id = ? AND status = 'completed' AND payout_id = ''`

	queryWithdrawalExists = `SELECT 1 FROM withdrawals WHERE id = ?`

	queryDepositExists = `SELECT 1 FROM deposits WHERE id = ?`
)
