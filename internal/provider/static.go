package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"cryptoWatch/internal/model"
)

// Static serves a fixed catalog, optionally after a simulated latency.
type Static struct {
	Catalog []model.AssetSnapshot
	Delay   time.Duration
}

// NewStatic returns a Static serving the demo catalog.
func NewStatic(delay time.Duration) *Static {
	return &Static{Catalog: DemoCatalog(), Delay: delay}
}

func (s *Static) Assets(ctx context.Context) ([]model.AssetSnapshot, error) {
	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	out := make([]model.AssetSnapshot, len(s.Catalog))
	copy(out, s.Catalog)
	return out, nil
}

// DemoCatalog is the built-in sample market.
func DemoCatalog() []model.AssetSnapshot {
	return []model.AssetSnapshot{
		demo("bitcoin", "Bitcoin", "BTC", "63452.78", "2.34", "1223456789012"),
		demo("ethereum", "Ethereum", "ETH", "3456.78", "-1.23", "412345678901"),
		demo("cardano", "Cardano", "ADA", "0.45", "5.67", "15678901234"),
		demo("solana", "Solana", "SOL", "145.67", "8.91", "56789012345"),
		demo("ripple", "Ripple", "XRP", "0.56", "-0.78", "27890123456"),
		demo("polkadot", "Polkadot", "DOT", "6.78", "3.45", "7890123456"),
		demo("dogecoin", "Dogecoin", "DOGE", "0.12", "-2.34", "16789012345"),
		demo("avalanche", "Avalanche", "AVAX", "34.56", "6.78", "12345678901"),
	}
}

func demo(id, name, symbol, price, change, marketCap string) model.AssetSnapshot {
	return model.AssetSnapshot{
		ID:                    id,
		Name:                  name,
		Symbol:                symbol,
		CurrentPrice:          decimal.RequireFromString(price),
		PriceChangePercent24h: decimal.RequireFromString(change),
		MarketCap:             decimal.RequireFromString(marketCap),
	}
}
