package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Auth       AuthConfig
	Scheduler  SchedulerConfig
	Conditions ConditionsConfig
	Formance   FormanceConfig
	Prime      PrimeConfig
	AssetsFile string
	PricesFile string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// AuthConfig holds credentials used to authenticate callers
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	AdminSecretKey string
}

// SchedulerConfig holds the periodic job intervals
type SchedulerConfig struct {
	Enabled                bool
	RewardAccrualInterval  time.Duration
	ConditionSweepInterval time.Duration
	PayoutInterval         time.Duration
}

// ConditionsConfig holds withdrawal condition thresholds
type ConditionsConfig struct {
	MinStakeUSD    decimal.Decimal
	MinDepositsUSD decimal.Decimal
	MinAccountAge  time.Duration
}

// FormanceConfig holds the optional Formance journal settings
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// Enabled reports whether enough settings are present to connect
func (c FormanceConfig) Enabled() bool {
	return c.StackURL != "" && c.ClientID != "" && c.ClientSecret != ""
}

// PrimeConfig holds the optional Prime payout settings
type PrimeConfig struct {
	AccessKey   string
	Passphrase  string
	SigningKey  string
	PortfolioId string
}

// Enabled reports whether Prime credentials are configured
func (c PrimeConfig) Enabled() bool {
	return c.AccessKey != "" && c.Passphrase != "" && c.SigningKey != ""
}
