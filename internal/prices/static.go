package prices

import (
	"context"
	"fmt"
	"os"
	"strings"

	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// StaticFeed serves USD prices from a fixed table. Unknown symbols are
// reported as unavailable so callers fail closed.
type StaticFeed struct {
	prices map[string]decimal.Decimal
}

type pricesFile struct {
	Prices map[string]string `yaml:"prices"`
}

// Fallbacks mirror the reference prices the platform shipped with.
var Fallbacks = map[string]decimal.Decimal{
	"BTC":  decimal.NewFromInt(95000),
	"ETH":  decimal.NewFromInt(3500),
	"SOL":  decimal.NewFromInt(180),
	"XRP":  decimal.RequireFromString("2.5"),
	"USDT": decimal.NewFromInt(1),
	"USDC": decimal.NewFromInt(1),
}

func NewStaticFeed(prices map[string]decimal.Decimal) *StaticFeed {
	normalized := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		normalized[strings.ToUpper(symbol)] = price
	}
	return &StaticFeed{prices: normalized}
}

// LoadStaticFeed reads a YAML price table of the form
//
//	prices:
//	  BTC: "95000"
func LoadStaticFeed(path string) (*StaticFeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var file pricesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	table := make(map[string]decimal.Decimal, len(file.Prices))
	for symbol, raw := range file.Prices {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid price %q for %s: %w", raw, symbol, err)
		}
		if !price.IsPositive() {
			return nil, fmt.Errorf("price for %s must be positive, got %s", symbol, raw)
		}
		table[symbol] = price
	}

	zap.L().Info("Loaded USD price table", zap.String("file", path), zap.Int("symbols", len(table)))
	return NewStaticFeed(table), nil
}

// USDPrice returns the USD price of one unit of currency
func (f *StaticFeed) USDPrice(_ context.Context, currency string) (decimal.Decimal, error) {
	price, ok := f.prices[strings.ToUpper(currency)]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no USD price for %s", store.ErrDependencyUnavailable, currency)
	}
	return price, nil
}
