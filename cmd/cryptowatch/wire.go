package main

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"cryptoWatch/internal/catalog"
	"cryptoWatch/internal/chain"
	"cryptoWatch/internal/config"
	"cryptoWatch/internal/format"
	"cryptoWatch/internal/model"
	"cryptoWatch/internal/provider"
	"cryptoWatch/internal/session"
	"cryptoWatch/internal/storage"
	"cryptoWatch/internal/storage/postgres"
	"cryptoWatch/internal/storage/redis"
	"cryptoWatch/internal/storage/s3"
	"cryptoWatch/internal/watchlist"
)

// app holds the wired session and the resources to release on exit.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	session *session.Session
	watch   *watchlist.Store
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger, withProvider bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	kv, err := newStorage(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	watch, err := watchlist.Open(ctx, kv,
		watchlist.WithKey(cfg.WatchlistKey),
		watchlist.WithLogger(logger.Named("watchlist")),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.watch = watch

	var p provider.Provider = provider.Func(func(ctx context.Context) ([]model.AssetSnapshot, error) {
		return nil, fmt.Errorf("no market provider configured")
	})
	if withProvider {
		p, err = newProvider(ctx, cfg, logger.Named("provider"), a)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	loader := catalog.NewLoader(catalog.Config{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Timeout:      cfg.LoadTimeout,
	}, p, logger.Named("catalog"))

	sess, err := session.New(loader, watch, format.New(cfg.Currency))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = sess
	return a, nil
}

func newProvider(ctx context.Context, cfg config.Config, logger *zap.Logger, a *app) (provider.Provider, error) {
	switch cfg.Provider {
	case "static":
		return provider.NewStatic(cfg.ProviderDelay), nil
	case "http":
		fields, err := provider.CoinGeckoFields().Override(cfg.ProviderFields)
		if err != nil {
			return nil, err
		}
		return provider.NewHTTP(provider.HTTPConfig{
			URL:          cfg.ProviderURL,
			APIKey:       cfg.ProviderAPIKey,
			APIKeyHeader: cfg.ProviderAPIKeyHeader,
			ItemsPath:    cfg.ProviderItemsPath,
			Fields:       fields,
			UpperSymbols: cfg.ProviderUpperSymbols,
			Timeout:      cfg.LoadTimeout,
		}, &http.Client{Timeout: cfg.LoadTimeout}, logger), nil
	case "onchain":
		assets, err := provider.ParseOnchainAssets(cfg.OnchainAssets)
		if err != nil {
			return nil, err
		}
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("connect rpc: %w", err)
		}
		a.closers = append(a.closers, chainClient.Close)
		return provider.NewOnchain(provider.OnchainConfig{
			Assets:      assets,
			Concurrency: cfg.OnchainConcurrency,
		}, chainClient, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func newStorage(ctx context.Context, cfg config.Config, a *app) (storage.Store, error) {
	switch cfg.Storage {
	case "file":
		return storage.NewFileStore(cfg.StorageDir), nil
	case "memory":
		return storage.NewMemoryStore(), nil
	case "redis":
		store, err := redis.New(ctx, redis.Config{
			Addr:       cfg.RedisAddr,
			Password:   cfg.RedisPassword,
			DB:         cfg.RedisDB,
			TLSEnabled: cfg.RedisTLS,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = store.Close() })
		return store, nil
	case "postgres":
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		return s3.New(ctx, s3.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
			PathStyle: cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
