package database

const schema = `
	-- Profiles for authenticated accounts
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'user',
		active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(active);

	-- Balances: one row per user and currency, never deleted
	CREATE TABLE IF NOT EXISTS balances (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		available TEXT NOT NULL DEFAULT '0',
		staked TEXT NOT NULL DEFAULT '0',
		total_rewards TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE(user_id, currency)
	);

	-- Audit trail written in the same transaction as each balance change
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		available_delta TEXT NOT NULL,
		staked_delta TEXT NOT NULL,
		rewards_delta TEXT NOT NULL,
		available_after TEXT NOT NULL,
		staked_after TEXT NOT NULL,
		rewards_after TEXT NOT NULL,
		reference TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_user_currency ON ledger_entries(user_id, currency, created_at);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_reference ON ledger_entries(reference);

	CREATE TABLE IF NOT EXISTS deposits (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		tx_hash TEXT NOT NULL DEFAULT '',
		wallet_address TEXT NOT NULL DEFAULT '',
		proof_image_url TEXT NOT NULL DEFAULT '',
		admin_id TEXT NOT NULL DEFAULT '',
		admin_notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		reviewed_at TIMESTAMP,
		confirmed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_deposits_user_status ON deposits(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_deposits_status ON deposits(status);

	CREATE TABLE IF NOT EXISTS staking_plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		currency TEXT NOT NULL,
		apy TEXT NOT NULL,
		lockup_days INTEGER NOT NULL DEFAULT 0,
		min_stake TEXT NOT NULL DEFAULT '0',
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stakes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		plan_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount TEXT NOT NULL,
		apy TEXT NOT NULL,
		lockup_days INTEGER NOT NULL DEFAULT 0,
		rewards_earned TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		start_date TIMESTAMP NOT NULL,
		end_date TIMESTAMP,
		last_reward_at TIMESTAMP,
		cancel_reason TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_stakes_user_status ON stakes(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_stakes_plan_status ON stakes(plan_id, status);
	CREATE INDEX IF NOT EXISTS idx_stakes_status ON stakes(status);

	CREATE TABLE IF NOT EXISTS withdrawals (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		withdrawal_type TEXT NOT NULL,
		currency TEXT NOT NULL,
		amount TEXT NOT NULL,
		wallet_address TEXT NOT NULL,
		status TEXT NOT NULL,
		approval_condition TEXT NOT NULL DEFAULT 'none',
		condition_met BOOLEAN NOT NULL DEFAULT 0,
		admin_id TEXT NOT NULL DEFAULT '',
		admin_notes TEXT NOT NULL DEFAULT '',
		payout_id TEXT NOT NULL DEFAULT '',
		requested_at TIMESTAMP NOT NULL,
		reviewed_at TIMESTAMP,
		processed_at TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_withdrawals_user_status ON withdrawals(user_id, status);
	CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status, condition_met);
`
