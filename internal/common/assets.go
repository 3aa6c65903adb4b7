package common

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"staking-ledger-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type AssetsConfig struct {
	Assets []models.Asset `yaml:"assets"`
}

// DefaultAssets is used when no assets file is available
var DefaultAssets = []models.Asset{
	{Symbol: "BTC", Network: "bitcoin-mainnet", Precision: 8},
	{Symbol: "ETH", Network: "ethereum-mainnet", Precision: 18},
	{Symbol: "SOL", Network: "solana-mainnet", Precision: 9},
	{Symbol: "XRP", Network: "ripple-mainnet", Precision: 6},
	{Symbol: "USDT", Network: "ethereum-mainnet", Precision: 6},
	{Symbol: "USDC", Network: "ethereum-mainnet", Precision: 6},
}

func resolvePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(wd, file), nil
}

func LoadAssetConfig(assetsFile string) ([]models.Asset, error) {
	assetsPath, err := resolvePath(assetsFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(assetsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", assetsFile, err)
	}

	var config AssetsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", assetsFile, err)
	}

	for i, asset := range config.Assets {
		if asset.Symbol == "" {
			return nil, fmt.Errorf("asset at index %d missing symbol", i)
		}
		if asset.Network == "" {
			return nil, fmt.Errorf("asset at index %d missing network", i)
		}
		if asset.Precision < 0 || asset.Precision > 18 {
			return nil, fmt.Errorf("asset %s has invalid precision %d", asset.Symbol, asset.Precision)
		}
		config.Assets[i].Symbol = strings.ToUpper(asset.Symbol)
	}

	return config.Assets, nil
}

// LoadAssetsOrDefault falls back to DefaultAssets when the file is missing
func LoadAssetsOrDefault(assetsFile string) ([]models.Asset, error) {
	assets, err := LoadAssetConfig(assetsFile)
	if err == nil {
		return assets, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Warn("Assets file not found, using built-in asset list", zap.String("file", assetsFile))
		return DefaultAssets, nil
	}
	return nil, err
}
