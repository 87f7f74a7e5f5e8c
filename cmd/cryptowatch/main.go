package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cryptowatch",
		Short:        "Crypto market browser with a persistent watchlist",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	marketCmd := &cobra.Command{
		Use:   "market",
		Short: "Load the market and show assets matching --query",
		Args:  cobra.NoArgs,
		RunE:  runMarket,
	}
	addCommonFlags(marketCmd.Flags())
	addProviderFlags(marketCmd.Flags())
	marketCmd.Flags().StringP("query", "q", "", "case-insensitive name or symbol search")
	root.AddCommand(marketCmd)

	watchCmd := &cobra.Command{
		Use:   "watch <asset-id>...",
		Short: "Toggle assets in the watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runWatch,
	}
	addCommonFlags(watchCmd.Flags())
	addProviderFlags(watchCmd.Flags())
	root.AddCommand(watchCmd)

	watchlistCmd := &cobra.Command{
		Use:   "watchlist",
		Short: "Show the saved watchlist",
		Args:  cobra.NoArgs,
		RunE:  runWatchlist,
	}
	addCommonFlags(watchlistCmd.Flags())
	root.AddCommand(watchlistCmd)

	return root
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("currency", "USD", "display currency (ISO 4217)")
	flags.Bool("plain", false, "print markdown without terminal styling")

	flags.String("storage", "file", "watchlist storage (file, memory, redis, postgres, s3)")
	flags.String("storage-dir", "./data", "directory for file storage")
	flags.String("watchlist-key", "cryptoWatchlist", "storage key of the watchlist")
	flags.String("redis-addr", "", "Redis address")
	flags.String("redis-password", "", "Redis password")
	flags.Int("redis-db", 0, "Redis database")
	flags.Bool("redis-tls", false, "connect to Redis over TLS")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("s3-bucket", "", "S3 bucket")
	flags.String("s3-region", "us-east-1", "S3 region")
	flags.String("s3-endpoint", "", "S3-compatible endpoint URL")
	flags.String("s3-access-key", "", "S3 access key (default credential chain when empty)")
	flags.String("s3-secret-key", "", "S3 secret key")
	flags.String("s3-prefix", "", "S3 object key prefix")
	flags.Bool("s3-path-style", false, "use path-style S3 addressing")
}

func addProviderFlags(flags *pflag.FlagSet) {
	flags.String("provider", "static", "market data provider (static, http, onchain)")
	flags.String("provider-url", "", "markets endpoint for the http provider")
	flags.String("provider-api-key", "", "API key for the http provider")
	flags.String("provider-api-key-header", "", "header carrying the API key")
	flags.String("provider-items-path", "", "jsonpath selecting the asset array")
	flags.StringToString("provider-fields", nil, "jsonpath per asset field (e.g. current_price=$.quote.price)")
	flags.Bool("provider-upper-symbols", false, "upper-case symbols from the http provider")
	flags.Duration("provider-delay", 0, "simulated latency for the static provider")
	flags.String("rpc", "", "EVM RPC URL for the onchain provider")
	flags.StringSlice("onchain-asset", nil, "onchain assets as id:token:feed (comma-separated)")
	flags.Int("onchain-concurrency", 4, "parallel onchain asset reads")
	flags.Duration("load-timeout", 30*time.Second, "deadline for a market load including retries")
	flags.Int("max-retries", 3, "maximum retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
