package prime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"staking-ledger-go/internal/models"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/portfolios"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/coinbase-samples/prime-sdk-go/wallets"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const tradingWallet = "TRADING"

// Service sends completed withdrawals out of a Prime portfolio
type Service struct {
	client          client.RestClient
	portfoliosSvc   portfolios.PortfoliosService
	walletsSvc      wallets.WalletsService
	transactionsSvc transactions.TransactionsService

	assets      models.AssetSet
	portfolioId string

	mu      sync.Mutex
	wallets map[string]string // symbol -> wallet id
}

func NewService(creds *credentials.Credentials, assets models.AssetSet) (*Service, error) {
	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	restClient := client.NewRestClient(creds, httpClient)

	return &Service{
		client:          restClient,
		portfoliosSvc:   portfolios.NewPortfoliosService(restClient),
		walletsSvc:      wallets.NewWalletsService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
		assets:          assets,
		wallets:         make(map[string]string),
	}, nil
}

// Credentials builds SDK credentials from config
func Credentials(cfg models.PrimeConfig) (*credentials.Credentials, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("missing required Prime API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}
	return &credentials.Credentials{
		AccessKey:  cfg.AccessKey,
		Passphrase: cfg.Passphrase,
		SigningKey: cfg.SigningKey,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

// UsePortfolio selects the portfolio payouts are sent from. An empty id
// resolves the default portfolio.
func (s *Service) UsePortfolio(ctx context.Context, portfolioId string) (*models.Portfolio, error) {
	if portfolioId != "" {
		s.portfolioId = portfolioId
		return &models.Portfolio{Id: portfolioId}, nil
	}
	portfolio, err := s.FindDefaultPortfolio(ctx)
	if err != nil {
		return nil, err
	}
	s.portfolioId = portfolio.Id
	return portfolio, nil
}

func (s *Service) ListPortfolios(ctx context.Context) ([]models.Portfolio, error) {
	request := &portfolios.ListPortfoliosRequest{}

	response, err := s.portfoliosSvc.ListPortfolios(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to list portfolios: %w", err)
	}

	portfolioList := make([]models.Portfolio, len(response.Portfolios))
	for i, p := range response.Portfolios {
		portfolioList[i] = models.Portfolio{
			Id:   p.Id,
			Name: p.Name,
		}
	}

	return portfolioList, nil
}

func (s *Service) FindDefaultPortfolio(ctx context.Context) (*models.Portfolio, error) {
	portfolioList, err := s.ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}
	return defaultPortfolio(portfolioList)
}

func defaultPortfolio(portfolioList []models.Portfolio) (*models.Portfolio, error) {
	for _, portfolio := range portfolioList {
		if portfolio.Name == "Default Portfolio" {
			return &portfolio, nil
		}
	}
	return nil, fmt.Errorf("default portfolio not found")
}

func (s *Service) ListWallets(ctx context.Context, portfolioId, walletType string, symbols []string) ([]models.Wallet, error) {
	request := &wallets.ListWalletsRequest{
		PortfolioId: portfolioId,
		Type:        walletType,
		Symbols:     symbols,
	}

	response, err := s.walletsSvc.ListWallets(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to list wallets: %w", err)
	}

	walletList := make([]models.Wallet, len(response.Wallets))
	for i, w := range response.Wallets {
		walletList[i] = models.Wallet{
			Id:     w.Id,
			Name:   w.Name,
			Symbol: w.Symbol,
			Type:   w.Type,
		}
	}

	return walletList, nil
}

// walletFor finds the trading wallet holding symbol, caching the answer
func (s *Service) walletFor(ctx context.Context, symbol string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.wallets[symbol]; ok {
		return id, nil
	}
	list, err := s.ListWallets(ctx, s.portfolioId, tradingWallet, []string{symbol})
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return "", fmt.Errorf("no %s wallet for %s in portfolio %s", tradingWallet, symbol, s.portfolioId)
	}
	s.wallets[symbol] = list[0].Id
	return list[0].Id, nil
}

// SendPayout creates a Prime withdrawal for a completed ledger withdrawal.
// The withdrawal id is the idempotency key, so a retried send never pays twice.
func (s *Service) SendPayout(ctx context.Context, w models.Withdrawal) (string, error) {
	if s.portfolioId == "" {
		return "", fmt.Errorf("prime portfolio is not selected")
	}
	asset, ok := s.assets.Lookup(w.Currency)
	if !ok {
		return "", fmt.Errorf("unsupported payout currency %s", w.Currency)
	}
	walletId, err := s.walletFor(ctx, asset.Symbol)
	if err != nil {
		return "", err
	}

	request := withdrawalRequest(s.portfolioId, walletId, asset, w)

	zap.L().Info("Creating withdrawal via Prime API",
		zap.String("withdrawal_id", w.Id),
		zap.String("portfolio_id", request.PortfolioId),
		zap.String("wallet_id", request.SourceWalletId),
		zap.String("asset", request.Symbol),
		zap.String("amount", request.Amount),
		zap.String("destination", w.WalletAddress))

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Failed to create withdrawal",
			zap.String("withdrawal_id", w.Id),
			zap.String("wallet_id", walletId),
			zap.String("amount", request.Amount),
			zap.Error(err))
		return "", fmt.Errorf("unable to create withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal created successfully",
		zap.String("withdrawal_id", w.Id),
		zap.String("activity_id", response.ActivityId))

	return response.ActivityId, nil
}

func withdrawalRequest(portfolioId, walletId string, asset models.Asset, w models.Withdrawal) *transactions.CreateWalletWithdrawalRequest {
	blockchainAddr := &model.BlockchainAddress{
		Address: w.WalletAddress,
	}
	if networkId, networkType, ok := asset.NetworkDetails(); ok {
		blockchainAddr.Network = &model.NetworkDetails{
			Id:   networkId,
			Type: networkType,
		}
	}

	return &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       portfolioId,
		SourceWalletId:    walletId,
		Amount:            w.Amount.Truncate(int32(asset.Precision)).String(),
		IdempotencyKey:    w.Id,
		Symbol:            asset.Symbol,
		DestinationType:   "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: blockchainAddr,
	}
}
