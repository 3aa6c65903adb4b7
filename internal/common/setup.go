package common

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"staking-ledger-go/internal/api"
	"staking-ledger-go/internal/database"
	"staking-ledger-go/internal/formance"
	"staking-ledger-go/internal/models"
	"staking-ledger-go/internal/prices"
	"staking-ledger-go/internal/prime"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService        *database.Service
	Ledger           *api.LedgerService
	Assets           models.AssetSet
	Journal          *formance.Service
	PrimeService     *prime.Service
	DefaultPortfolio *models.Portfolio
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices opens the database and builds the ledger service. The
// Formance journal and Prime payouts are attached only when configured.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService}

	assetList, err := LoadAssetsOrDefault(cfg.AssetsFile)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.Assets = models.NewAssetSet(assetList)

	feed, err := loadPriceFeed(cfg.PricesFile)
	if err != nil {
		services.Close()
		return nil, err
	}

	opts := []api.Option{api.WithConditionThresholds(cfg.Conditions)}

	if cfg.Formance.Enabled() {
		journal, err := formance.NewService(ctx, cfg.Formance, services.Assets)
		if err != nil {
			services.Close()
			return nil, fmt.Errorf("failed to initialize formance journal: %w", err)
		}
		services.Journal = journal
		opts = append(opts, api.WithJournal(journal))
	} else {
		zap.L().Info("Formance journal not configured, ledger entries stay local")
	}

	if cfg.Prime.Enabled() {
		zap.L().Info("Loading Prime API credentials")
		creds, err := prime.Credentials(cfg.Prime)
		if err != nil {
			services.Close()
			return nil, err
		}
		primeService, err := prime.NewService(creds, services.Assets)
		if err != nil {
			services.Close()
			return nil, err
		}

		zap.L().Info("Selecting payout portfolio")
		portfolio, err := primeService.UsePortfolio(ctx, cfg.Prime.PortfolioId)
		if err != nil {
			services.Close()
			return nil, err
		}
		zap.L().Info("Using portfolio",
			zap.String("name", portfolio.Name),
			zap.String("id", portfolio.Id))

		services.PrimeService = primeService
		services.DefaultPortfolio = portfolio
		opts = append(opts, api.WithPayoutSender(primeService))
	} else {
		zap.L().Info("Prime credentials not configured, payouts are disabled")
	}

	services.Ledger = api.NewLedgerService(dbService, services.Assets, feed, opts...)
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without Prime API
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func loadPriceFeed(path string) (*prices.StaticFeed, error) {
	feed, err := prices.LoadStaticFeed(path)
	if err == nil {
		return feed, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("Prices file not found, using built-in reference prices", zap.String("file", path))
		return prices.NewStaticFeed(prices.Fallbacks), nil
	}
	return nil, err
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
