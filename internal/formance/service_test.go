package formance

import (
	"fmt"
	"strings"
	"testing"

	"staking-ledger-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		asset models.Asset
		want  string
	}{
		{models.Asset{Symbol: "USDT", Precision: 6}, "USDT/6"},
		{models.Asset{Symbol: "BTC", Precision: 8}, "BTC/8"},
		{models.Asset{Symbol: "ETH", Precision: 18}, "ETH/18"},
	}
	for _, tt := range tests {
		if got := formanceAsset(tt.asset); got != tt.want {
			t.Errorf("formanceAsset(%v) = %q, want %q", tt.asset, got, tt.want)
		}
	}
}

func TestUnknownAssetDefaultsToSixDecimals(t *testing.T) {
	s := &Service{assets: models.NewAssetSet([]models.Asset{{Symbol: "ETH", Precision: 18}})}
	if got := s.asset("eth").Precision; got != 18 {
		t.Errorf("expected ETH precision 18, got %d", got)
	}
	if got := s.asset("DOGE").Precision; got != 6 {
		t.Errorf("expected unknown precision default 6, got %d", got)
	}
}

func TestSmallestUnitsRoundTrip(t *testing.T) {
	units := smallestUnits(decimal.RequireFromString("1.5"), 8)
	if units.String() != "150000000" {
		t.Errorf("expected 150000000, got %s", units.String())
	}
	if got := bigIntToDecimal(units, 8); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("expected 1.5, got %s", got.String())
	}
	if got := bigIntToDecimal(nil, 8); !got.IsZero() {
		t.Errorf("expected 0, got %s", got.String())
	}
}

func TestBuildPostings_Stake(t *testing.T) {
	entry := models.LedgerEntry{
		UserId:         "user-1",
		EntryType:      models.EntryStake,
		AvailableDelta: decimal.NewFromInt(-2),
		StakedDelta:    decimal.NewFromInt(2),
		RewardsDelta:   decimal.Zero,
	}
	got := buildPostings(entry, 6)
	want := []posting{
		{source: "users:user-1:available", destination: "platform:staking", amount: "2000000"},
		{source: "platform:staking", destination: "users:user-1:staked", amount: "2000000"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d postings, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("posting %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestBuildPostings_SkipsDust(t *testing.T) {
	entry := models.LedgerEntry{
		UserId:       "user-1",
		EntryType:    models.EntryReward,
		RewardsDelta: decimal.RequireFromString("0.0000001"),
	}
	if got := buildPostings(entry, 6); len(got) != 0 {
		t.Errorf("expected no postings for sub-unit reward, got %+v", got)
	}
}

func TestAccountSegment(t *testing.T) {
	if got := userAccount("alice@example.com", poolRewards); got != "users:alice_example_com:rewards" {
		t.Errorf("userAccount = %q", got)
	}
	if got := counterparty("unknown type"); got != "platform:unknown_type" {
		t.Errorf("counterparty = %q", got)
	}
}

func TestNumscriptDeclaresEveryPosting(t *testing.T) {
	script, vars := numscript([]posting{
		{source: "platform:deposits", destination: "users:u1:available", amount: "10"},
		{source: "users:u1:rewards", destination: "platform:withdrawals", amount: "5"},
	})
	for _, want := range []string{"number $amount_1", "account $destination_0", "source = $source_1 allowing unbounded overdraft"} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
	if vars["source_1"] != "users:u1:rewards" || vars["amount_0"] != "10" {
		t.Errorf("unexpected vars: %v", vars)
	}
}

func TestIsConflictError(t *testing.T) {
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	conflict := &sdkerrors.V2ErrorResponse{ErrorCode: shared.V2ErrorsEnumConflict}
	if !isConflictError(fmt.Errorf("wrapped: %w", conflict)) {
		t.Error("expected wrapped conflict to be detected")
	}
	if isNotFoundError(conflict) {
		t.Error("conflict should not be not found")
	}
}
