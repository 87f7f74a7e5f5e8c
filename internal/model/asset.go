package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetSnapshot is one market asset as reported by a provider at fetch time.
type AssetSnapshot struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	Symbol                string          `json:"symbol"`
	CurrentPrice          decimal.Decimal `json:"current_price"`
	PriceChangePercent24h decimal.Decimal `json:"price_change_percentage_24h"`
	MarketCap             decimal.Decimal `json:"market_cap"`
}

type assetJSON struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name"`
	Symbol                string      `json:"symbol"`
	CurrentPrice          json.Number `json:"current_price"`
	PriceChangePercent24h json.Number `json:"price_change_percentage_24h"`
	MarketCap             json.Number `json:"market_cap"`
}

// MarshalJSON encodes decimal fields as JSON numbers rather than strings.
func (a AssetSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(assetJSON{
		ID:                    a.ID,
		Name:                  a.Name,
		Symbol:                a.Symbol,
		CurrentPrice:          json.Number(a.CurrentPrice.String()),
		PriceChangePercent24h: json.Number(a.PriceChangePercent24h.String()),
		MarketCap:             json.Number(a.MarketCap.String()),
	})
}

// Equal reports whether both snapshots carry the same identity and metrics.
func (a AssetSnapshot) Equal(b AssetSnapshot) bool {
	return a.ID == b.ID &&
		a.Name == b.Name &&
		a.Symbol == b.Symbol &&
		a.CurrentPrice.Equal(b.CurrentPrice) &&
		a.PriceChangePercent24h.Equal(b.PriceChangePercent24h) &&
		a.MarketCap.Equal(b.MarketCap)
}

// Validate checks the per-asset invariants.
func (a AssetSnapshot) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("asset id is empty")
	}
	if a.CurrentPrice.IsNegative() {
		return fmt.Errorf("asset %s: negative price %s", a.ID, a.CurrentPrice)
	}
	if a.MarketCap.IsNegative() {
		return fmt.Errorf("asset %s: negative market cap %s", a.ID, a.MarketCap)
	}
	return nil
}

// ValidateCatalog validates every asset and rejects duplicate ids.
func ValidateCatalog(assets []AssetSnapshot) error {
	seen := make(map[string]struct{}, len(assets))
	for i, asset := range assets {
		if err := asset.Validate(); err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
		if _, ok := seen[asset.ID]; ok {
			return fmt.Errorf("duplicate asset id %q", asset.ID)
		}
		seen[asset.ID] = struct{}{}
	}
	return nil
}

// EqualSlices compares two ordered asset lists element by element.
func EqualSlices(a, b []AssetSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
