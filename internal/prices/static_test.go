package prices

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"staking-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

func TestLoadStaticFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	content := "prices:\n  btc: \"95000\"\n  XRP: \"2.5\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write prices file: %v", err)
	}

	feed, err := LoadStaticFeed(path)
	if err != nil {
		t.Fatalf("LoadStaticFeed failed: %v", err)
	}

	price, err := feed.USDPrice(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("USDPrice failed: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(95000)) {
		t.Errorf("Expected 95000, got %s", price.String())
	}

	price, err = feed.USDPrice(context.Background(), "xrp")
	if err != nil {
		t.Fatalf("USDPrice failed: %v", err)
	}
	if !price.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected 2.5, got %s", price.String())
	}
}

func TestLoadStaticFeed_InvalidPrice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.yaml")
	if err := os.WriteFile(path, []byte("prices:\n  ETH: \"abc\"\n"), 0o600); err != nil {
		t.Fatalf("Failed to write prices file: %v", err)
	}
	if _, err := LoadStaticFeed(path); err == nil {
		t.Error("Expected error for non-numeric price")
	}

	if err := os.WriteFile(path, []byte("prices:\n  ETH: \"0\"\n"), 0o600); err != nil {
		t.Fatalf("Failed to write prices file: %v", err)
	}
	if _, err := LoadStaticFeed(path); err == nil {
		t.Error("Expected error for zero price")
	}
}

func TestUSDPrice_UnknownFailsClosed(t *testing.T) {
	feed := NewStaticFeed(Fallbacks)

	_, err := feed.USDPrice(context.Background(), "DOGE")
	if !errors.Is(err, store.ErrDependencyUnavailable) {
		t.Fatalf("Expected ErrDependencyUnavailable, got %v", err)
	}
}
