package formance

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"

	"staking-ledger-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultLedgerName = "staking-ledger"

// Service mirrors ledger entries into a Formance Stack ledger. SQLite stays
// the source of truth; the Formance ledger is a double-entry audit copy.
type Service struct {
	client *v3.Formance
	ledger string
	assets models.AssetSet
}

// NewService connects to the stack and creates the ledger if it doesn't
// already exist.
func NewService(ctx context.Context, cfg models.FormanceConfig, assets models.AssetSet) (*Service, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}
	if cfg.LedgerName == "" {
		cfg.LedgerName = defaultLedgerName
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	svc := &Service{client: client, ledger: cfg.LedgerName, assets: assets}

	if err := svc.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}

	zap.L().Info("Formance journal initialized", zap.String("ledger", cfg.LedgerName))
	return svc, nil
}

func (s *Service) ensureLedger(ctx context.Context) error {
	_, err := s.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: s.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{
				"application": "staking-ledger",
			},
		},
	})
	if err != nil {
		var apiErr *sdkerrors.V2ErrorResponse
		if errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", s.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", s.ledger))
	return nil
}

// PoolBalances reads the mirrored available, staked and rewards pools of one
// user and currency.
func (s *Service) PoolBalances(ctx context.Context, userId, currency string) (*models.Balance, error) {
	asset := s.asset(currency)
	fAsset := formanceAsset(asset)

	balance := &models.Balance{UserId: userId, Currency: asset.Symbol}
	for _, pool := range []struct {
		name string
		dst  *decimal.Decimal
	}{
		{poolAvailable, &balance.Available},
		{poolStaked, &balance.Staked},
		{poolRewards, &balance.TotalRewards},
	} {
		vols, err := s.getAccountVolumes(ctx, userAccount(userId, pool.name))
		if err != nil {
			return nil, err
		}
		*pool.dst = bigIntToDecimal(volumeBalance(vols, fAsset), asset.Precision)
	}
	return balance, nil
}

func (s *Service) getAccountVolumes(ctx context.Context, address string) (map[string]shared.V2Volume, error) {
	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account %s: %w", address, err)
	}
	return resp.V2AccountResponse.Data.Volumes, nil
}

// asset falls back to precision 6 for symbols missing from the asset file
func (s *Service) asset(currency string) models.Asset {
	if a, ok := s.assets.Lookup(currency); ok {
		return a
	}
	return models.Asset{Symbol: currency, Precision: 6}
}

// ---------- helpers ----------

// formanceAsset returns the Formance UMN notation, e.g. "USDT/6".
func formanceAsset(a models.Asset) string {
	return fmt.Sprintf("%s/%d", a.Symbol, a.Precision)
}

// smallestUnits truncates an amount to the asset's precision
func smallestUnits(amount decimal.Decimal, precision int) *big.Int {
	return amount.Shift(int32(precision)).BigInt()
}

func bigIntToDecimal(raw *big.Int, precision int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(precision))
}

func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

var invalidSegment = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// accountSegment makes an arbitrary id safe to use inside an account address
func accountSegment(id string) string {
	return invalidSegment.ReplaceAllString(id, "_")
}

// isConflictError checks whether a Formance SDK error is a CONFLICT (duplicate reference).
func isConflictError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumConflict
}

func isNotFoundError(err error) bool {
	var apiErr *sdkerrors.V2ErrorResponse
	return errors.As(err, &apiErr) && apiErr.ErrorCode == shared.V2ErrorsEnumNotFound
}

func strPtr(s string) *string { return &s }
