package models

import "strings"

// Asset is a currency the platform accepts
type Asset struct {
	Symbol    string `yaml:"symbol" json:"symbol"`
	Network   string `yaml:"network" json:"network"`
	Precision int    `yaml:"precision" json:"precision"`
}

// NetworkDetails splits a network such as "ethereum-mainnet" into its id and type
func (a Asset) NetworkDetails() (id, networkType string, ok bool) {
	id, networkType, ok = strings.Cut(a.Network, "-")
	if !ok || id == "" || networkType == "" {
		return "", "", false
	}
	return id, networkType, true
}

// AssetSet indexes assets by upper-case symbol
type AssetSet map[string]Asset

func NewAssetSet(assets []Asset) AssetSet {
	set := make(AssetSet, len(assets))
	for _, a := range assets {
		a.Symbol = strings.ToUpper(a.Symbol)
		set[a.Symbol] = a
	}
	return set
}

// Lookup finds an asset by symbol, ignoring case
func (s AssetSet) Lookup(symbol string) (Asset, bool) {
	a, ok := s[strings.ToUpper(symbol)]
	return a, ok
}
