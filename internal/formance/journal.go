package formance

import (
	"context"
	"fmt"
	"strings"

	"staking-ledger-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// User pools
const (
	poolAvailable = "available"
	poolStaked    = "staked"
	poolRewards   = "rewards"
)

// counterparties maps an entry type to the platform account on the other
// side of its postings. Stake and release net to zero on platform:staking.
var counterparties = map[string]string{
	models.EntryCredit:          "platform:deposits",
	models.EntryDebit:           "platform:withdrawals",
	models.EntryDebitRewards:    "platform:withdrawals",
	models.EntryStake:           "platform:staking",
	models.EntryRelease:         "platform:staking",
	models.EntryReward:          "platform:rewards",
	models.EntryAdminAdjustment: "platform:adjustments",
}

func userAccount(userId, pool string) string {
	return "users:" + accountSegment(userId) + ":" + pool
}

func counterparty(entryType string) string {
	if acct, ok := counterparties[entryType]; ok {
		return acct
	}
	return "platform:" + accountSegment(entryType)
}

// posting is one send statement
type posting struct {
	source      string
	destination string
	amount      string
}

// buildPostings turns the pool deltas of an entry into postings against the
// entry type's counterparty. Zero deltas and sub-unit amounts are skipped.
func buildPostings(entry models.LedgerEntry, precision int) []posting {
	other := counterparty(entry.EntryType)

	var postings []posting
	for _, leg := range []struct {
		pool  string
		delta decimal.Decimal
	}{
		{poolAvailable, entry.AvailableDelta},
		{poolStaked, entry.StakedDelta},
		{poolRewards, entry.RewardsDelta},
	} {
		units := smallestUnits(leg.delta.Abs(), precision)
		if units.Sign() == 0 {
			continue
		}
		user := userAccount(entry.UserId, leg.pool)
		p := posting{source: other, destination: user, amount: units.String()}
		if leg.delta.IsNegative() {
			p.source, p.destination = user, other
		}
		postings = append(postings, p)
	}
	return postings
}

// numscript renders the postings. Every source may overdraw: balance checks
// are enforced by the primary store, not by the mirror.
func numscript(postings []posting) (string, map[string]string) {
	var b strings.Builder
	b.WriteString("vars {\n  asset $asset\n  string $entry_type\n  string $user_id\n  string $currency\n  string $reference\n")
	vars := make(map[string]string, 3*len(postings)+5)
	for i := range postings {
		fmt.Fprintf(&b, "  number $amount_%d\n  account $source_%d\n  account $destination_%d\n", i, i, i)
	}
	b.WriteString("}\n")

	for i, p := range postings {
		fmt.Fprintf(&b, "\nsend [$asset $amount_%d] (\n  source = $source_%d allowing unbounded overdraft\n  destination = $destination_%d\n)\n", i, i, i)
		vars[fmt.Sprintf("amount_%d", i)] = p.amount
		vars[fmt.Sprintf("source_%d", i)] = p.source
		vars[fmt.Sprintf("destination_%d", i)] = p.destination
	}

	b.WriteString(`
set_tx_meta("entry_type", $entry_type)
set_tx_meta("user_id", $user_id)
set_tx_meta("currency", $currency)
set_tx_meta("reference", $reference)
`)
	return b.String(), vars
}

// Record posts one ledger entry. The entry id is the transaction reference,
// so replaying an entry is a no-op.
func (s *Service) Record(ctx context.Context, entry models.LedgerEntry) error {
	asset := s.asset(entry.Currency)
	postings := buildPostings(entry, asset.Precision)
	if len(postings) == 0 {
		zap.L().Debug("Ledger entry has no postings, skipping mirror",
			zap.String("entry_id", entry.Id),
			zap.String("entry_type", entry.EntryType))
		return nil
	}

	script, vars := numscript(postings)
	vars["asset"] = formanceAsset(asset)
	vars["entry_type"] = entry.EntryType
	vars["user_id"] = entry.UserId
	vars["currency"] = asset.Symbol
	vars["reference"] = entry.Reference

	postTx := shared.V2PostTransaction{
		Reference: strPtr(entry.Id),
		Script: &shared.V2PostTransactionScript{
			Plain: script,
			Vars:  vars,
		},
	}
	if !entry.CreatedAt.IsZero() {
		ts := entry.CreatedAt.UTC()
		postTx.Timestamp = &ts
	}

	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger:            s.ledger,
		V2PostTransaction: postTx,
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Ledger entry already mirrored", zap.String("entry_id", entry.Id))
			return nil
		}
		return fmt.Errorf("error mirroring ledger entry %s: %w", entry.Id, err)
	}

	zap.L().Debug("Ledger entry mirrored to Formance",
		zap.String("entry_id", entry.Id),
		zap.String("entry_type", entry.EntryType),
		zap.String("user_id", entry.UserId),
		zap.Int("postings", len(postings)))
	return nil
}
