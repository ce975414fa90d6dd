package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// LocalPlaces is the precision used for base-currency amounts.
	LocalPlaces = 2
	// QuantityPlaces is the precision used for asset quantities (satoshi level).
	QuantityPlaces = 8
)

// Asset identifies an investable asset class.
type Asset string

const (
	AssetBitcoin  Asset = "bitcoin"
	AssetEthereum Asset = "ethereum"
	AssetGold     Asset = "gold"
)

var assetSymbols = map[Asset]string{
	AssetBitcoin:  "BTC",
	AssetEthereum: "ETH",
	AssetGold:     "XAU",
}

var assetNames = map[Asset]string{
	AssetBitcoin:  "Bitcoin (BTC)",
	AssetEthereum: "Ethereum (ETH)",
	AssetGold:     "Physical gold (XAU)",
}

// Assets lists the supported asset classes.
func Assets() []Asset {
	return []Asset{AssetBitcoin, AssetEthereum, AssetGold}
}

// ParseAsset accepts an asset type ("bitcoin") or its symbol ("BTC").
func ParseAsset(s string) (Asset, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for asset, symbol := range assetSymbols {
		if key == string(asset) || key == strings.ToLower(symbol) {
			return asset, nil
		}
	}
	return "", Fail(ErrInvalidRequest, "unknown asset %q", s)
}

// Valid reports whether a is part of the catalog.
func (a Asset) Valid() bool {
	_, ok := assetSymbols[a]
	return ok
}

// Symbol returns the ticker, which is also the currency of the asset wallet.
func (a Asset) Symbol() string { return assetSymbols[a] }

// Name returns the display name.
func (a Asset) Name() string {
	if n, ok := assetNames[a]; ok {
		return n
	}
	return string(a)
}

// WalletKind returns the kind of wallet that holds the asset.
func (a Asset) WalletKind() WalletKind {
	if a == AssetGold {
		return GoldWallet()
	}
	return CryptoWallet(a)
}

// RoundLocal rounds a base-currency amount.
func RoundLocal(d decimal.Decimal) decimal.Decimal { return d.Round(LocalPlaces) }

// RoundQuantity rounds an asset quantity.
func RoundQuantity(d decimal.Decimal) decimal.Decimal { return d.Round(QuantityPlaces) }
