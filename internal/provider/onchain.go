package provider

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cryptoWatch/internal/model"
	"cryptoWatch/internal/token"
)

// ChainReader is the subset of *chain.Client used by Onchain.
type ChainReader interface {
	token.Caller
	LatestBlockNumber(ctx context.Context) (uint64, error)
}

// OnchainAsset pairs an ERC20 token with the USD price feed that quotes it.
type OnchainAsset struct {
	ID    string
	Token common.Address
	Feed  common.Address
}

// ParseOnchainAssets parses "id:token:feed" entries.
func ParseOnchainAssets(inputs []string) ([]OnchainAsset, error) {
	assets := make([]OnchainAsset, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		parts := strings.Split(input, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid onchain asset %q: want id:token:feed", input)
		}
		id := strings.TrimSpace(parts[0])
		tokenAddr := strings.TrimSpace(parts[1])
		feedAddr := strings.TrimSpace(parts[2])
		if id == "" {
			return nil, fmt.Errorf("invalid onchain asset %q: empty id", input)
		}
		if !common.IsHexAddress(tokenAddr) {
			return nil, fmt.Errorf("invalid token address: %s", tokenAddr)
		}
		if !common.IsHexAddress(feedAddr) {
			return nil, fmt.Errorf("invalid feed address: %s", feedAddr)
		}
		assets = append(assets, OnchainAsset{
			ID:    id,
			Token: common.HexToAddress(tokenAddr),
			Feed:  common.HexToAddress(feedAddr),
		})
	}
	return assets, nil
}

// OnchainConfig configures the on-chain provider.
type OnchainConfig struct {
	Assets      []OnchainAsset
	Concurrency int
}

// Onchain prices ERC20 tokens from price feeds. Market cap is total supply
// times price. Feeds expose no 24h history, so the change is reported as 0.
type Onchain struct {
	cfg    OnchainConfig
	chain  ChainReader
	cache  *token.MetaCache
	logger *zap.Logger

	chainOnce sync.Once
}

// chainIdentifier is implemented by *chain.Client.
type chainIdentifier interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// logChain reports which network the feeds are read from, once per provider.
func (o *Onchain) logChain(ctx context.Context) {
	o.chainOnce.Do(func() {
		idr, ok := o.chain.(chainIdentifier)
		if !ok {
			return
		}
		id, err := idr.ChainID(ctx)
		if err != nil {
			o.logger.Warn("chain id unavailable", zap.Error(err))
			return
		}
		o.logger.Info("onchain provider connected", zap.Stringer("chain_id", id), zap.Int("assets", len(o.cfg.Assets)))
	})
}

func NewOnchain(cfg OnchainConfig, chainReader ChainReader, logger *zap.Logger) *Onchain {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Onchain{
		cfg:    cfg,
		chain:  chainReader,
		cache:  token.NewMetaCache(),
		logger: logger,
	}
}

func (o *Onchain) Assets(ctx context.Context) ([]model.AssetSnapshot, error) {
	if o.chain == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if len(o.cfg.Assets) == 0 {
		return nil, fmt.Errorf("no onchain assets configured")
	}

	o.logChain(ctx)

	latest, err := o.chain.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest block: %w", err)
	}
	block := new(big.Int).SetUint64(latest)

	out := make([]model.AssetSnapshot, len(o.cfg.Assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Concurrency)
	for i, asset := range o.cfg.Assets {
		i, asset := i, asset
		g.Go(func() error {
			snap, err := o.snapshot(gctx, asset, block)
			if err != nil {
				return fmt.Errorf("asset %s: %w", asset.ID, err)
			}
			out[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.logger.Debug("onchain catalog fetched", zap.Uint64("block", latest), zap.Int("assets", len(out)))
	return out, nil
}

func (o *Onchain) snapshot(ctx context.Context, asset OnchainAsset, block *big.Int) (model.AssetSnapshot, error) {
	meta, ok := o.cache.Get(asset.Token)
	if !ok {
		var err error
		meta, err = token.FetchMeta(ctx, o.chain, asset.Token, o.logger)
		if err != nil {
			return model.AssetSnapshot{}, fmt.Errorf("token meta: %w", err)
		}
		o.cache.Set(asset.Token, meta)
	}

	supply, err := token.FetchTotalSupply(ctx, o.chain, asset.Token, block)
	if err != nil {
		return model.AssetSnapshot{}, fmt.Errorf("total supply: %w", err)
	}
	round, err := token.FetchRound(ctx, o.chain, asset.Feed, block)
	if err != nil {
		return model.AssetSnapshot{}, fmt.Errorf("price feed: %w", err)
	}
	if round.Answer.Sign() < 0 {
		return model.AssetSnapshot{}, fmt.Errorf("price feed: negative answer %s", round.Answer)
	}

	price := decimal.NewFromBigInt(round.Answer, -int32(round.Decimals))
	units := decimal.NewFromBigInt(supply, -int32(meta.Decimals))

	name := meta.Name
	if name == "" {
		name = meta.Symbol
	}
	if name == "" {
		name = asset.ID
	}

	return model.AssetSnapshot{
		ID:                    asset.ID,
		Name:                  name,
		Symbol:                meta.Symbol,
		CurrentPrice:          price,
		PriceChangePercent24h: decimal.Zero,
		MarketCap:             units.Mul(price),
	}, nil
}
