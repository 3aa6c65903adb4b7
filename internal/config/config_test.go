package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staking.db", cfg.Database.Path)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5*time.Second, cfg.Database.BusyTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.RewardAccrualInterval)
	assert.Equal(t, 720*time.Hour, cfg.Conditions.MinAccountAge)
	assert.True(t, cfg.Conditions.MinStakeUSD.Equal(decimal.NewFromInt(100)))
	assert.True(t, cfg.Conditions.MinDepositsUSD.Equal(decimal.NewFromInt(500)))
	assert.False(t, cfg.Formance.Enabled())
	assert.False(t, cfg.Prime.Enabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("CONDITION_SWEEP_INTERVAL", "1m")
	t.Setenv("CONDITION_MIN_STAKE_USD", "250.5")
	t.Setenv("SCHEDULER_ENABLED", "false")
	t.Setenv("DB_MAX_OPEN_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, time.Minute, cfg.Scheduler.ConditionSweepInterval)
	assert.True(t, cfg.Conditions.MinStakeUSD.Equal(decimal.RequireFromString("250.5")))
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("duration", func(t *testing.T) {
		t.Setenv("PAYOUT_INTERVAL", "soon")
		_, err := Load()
		assert.ErrorContains(t, err, "PAYOUT_INTERVAL")
	})
	t.Run("decimal", func(t *testing.T) {
		t.Setenv("CONDITION_MIN_DEPOSITS_USD", "-1")
		_, err := Load()
		assert.ErrorContains(t, err, "CONDITION_MIN_DEPOSITS_USD")
	})
}
