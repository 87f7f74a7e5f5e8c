// Package provider adapts market data sources to the catalog loader.
package provider

import (
	"context"

	"cryptoWatch/internal/model"
)

// Provider returns the current ordered list of tradable assets.
type Provider interface {
	Assets(ctx context.Context) ([]model.AssetSnapshot, error)
}

// Func adapts a plain function to Provider.
type Func func(ctx context.Context) ([]model.AssetSnapshot, error)

func (f Func) Assets(ctx context.Context) ([]model.AssetSnapshot, error) {
	return f(ctx)
}
