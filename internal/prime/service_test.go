package prime

import (
	"context"
	"testing"

	"staking-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawalRequest(t *testing.T) {
	asset := models.Asset{Symbol: "USDT", Network: "ethereum-mainnet", Precision: 6}
	w := models.Withdrawal{
		Id:            "wd-1",
		Currency:      "USDT",
		Amount:        decimal.RequireFromString("12.3456789"),
		WalletAddress: "0xabc",
	}

	req := withdrawalRequest("pf-1", "wallet-1", asset, w)
	assert.Equal(t, "pf-1", req.PortfolioId)
	assert.Equal(t, "wallet-1", req.SourceWalletId)
	assert.Equal(t, "wd-1", req.IdempotencyKey)
	assert.Equal(t, "12.345678", req.Amount)
	assert.Equal(t, "DESTINATION_BLOCKCHAIN", req.DestinationType)
	require.NotNil(t, req.BlockchainAddress.Network)
	assert.Equal(t, "ethereum", req.BlockchainAddress.Network.Id)
	assert.Equal(t, "mainnet", req.BlockchainAddress.Network.Type)
}

func TestWithdrawalRequestWithoutNetwork(t *testing.T) {
	asset := models.Asset{Symbol: "BTC", Precision: 8}
	req := withdrawalRequest("pf-1", "wallet-1", asset, models.Withdrawal{Id: "wd-2", Amount: decimal.NewFromInt(1)})
	assert.Nil(t, req.BlockchainAddress.Network)
	assert.Equal(t, "1", req.Amount)
}

func TestDefaultPortfolio(t *testing.T) {
	p, err := defaultPortfolio([]models.Portfolio{{Id: "a", Name: "Trading"}, {Id: "b", Name: "Default Portfolio"}})
	require.NoError(t, err)
	assert.Equal(t, "b", p.Id)

	_, err = defaultPortfolio(nil)
	assert.Error(t, err)
}

func TestCredentials(t *testing.T) {
	_, err := Credentials(models.PrimeConfig{AccessKey: "a"})
	assert.Error(t, err)

	creds, err := Credentials(models.PrimeConfig{AccessKey: "a", Passphrase: "p", SigningKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "a", creds.AccessKey)
}

func TestSendPayoutRequiresPortfolio(t *testing.T) {
	s := &Service{wallets: map[string]string{}}
	_, err := s.SendPayout(context.Background(), models.Withdrawal{Id: "wd-1", Currency: "ETH"})
	assert.Error(t, err)
}
