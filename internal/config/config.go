package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	LogLevel string
	Currency string

	Provider             string
	ProviderURL          string
	ProviderAPIKey       string
	ProviderAPIKeyHeader string
	ProviderItemsPath    string
	ProviderFields       map[string]string
	ProviderUpperSymbols bool
	ProviderDelay        time.Duration

	RPCURL             string
	OnchainAssets      []string
	OnchainConcurrency int

	LoadTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	Storage      string
	StorageDir   string
	WatchlistKey string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool

	PGDSN string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
	S3PathStyle bool

	Query string
	Plain bool
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("CRYPTOWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "warn")
	v.SetDefault("currency", "USD")
	v.SetDefault("provider", "static")
	v.SetDefault("provider-delay", time.Duration(0))
	v.SetDefault("onchain-concurrency", 4)
	v.SetDefault("load-timeout", 30*time.Second)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("storage", "file")
	v.SetDefault("storage-dir", "./data")
	v.SetDefault("watchlist-key", "cryptoWatchlist")
	v.SetDefault("s3-region", "us-east-1")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		LogLevel: v.GetString("log-level"),
		Currency: v.GetString("currency"),

		Provider:             strings.ToLower(v.GetString("provider")),
		ProviderURL:          v.GetString("provider-url"),
		ProviderAPIKey:       v.GetString("provider-api-key"),
		ProviderAPIKeyHeader: v.GetString("provider-api-key-header"),
		ProviderItemsPath:    v.GetString("provider-items-path"),
		ProviderFields:       getStringMap(v, "provider-fields"),
		ProviderUpperSymbols: v.GetBool("provider-upper-symbols"),
		ProviderDelay:        v.GetDuration("provider-delay"),

		RPCURL:             v.GetString("rpc"),
		OnchainAssets:      getStringSlice(v, "onchain-asset"),
		OnchainConcurrency: v.GetInt("onchain-concurrency"),

		LoadTimeout:  v.GetDuration("load-timeout"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),

		Storage:      strings.ToLower(v.GetString("storage")),
		StorageDir:   v.GetString("storage-dir"),
		WatchlistKey: v.GetString("watchlist-key"),

		RedisAddr:     v.GetString("redis-addr"),
		RedisPassword: v.GetString("redis-password"),
		RedisDB:       v.GetInt("redis-db"),
		RedisTLS:      v.GetBool("redis-tls"),

		PGDSN: v.GetString("pg-dsn"),

		S3Bucket:    v.GetString("s3-bucket"),
		S3Region:    v.GetString("s3-region"),
		S3Endpoint:  v.GetString("s3-endpoint"),
		S3AccessKey: v.GetString("s3-access-key"),
		S3SecretKey: v.GetString("s3-secret-key"),
		S3Prefix:    v.GetString("s3-prefix"),
		S3PathStyle: v.GetBool("s3-path-style"),

		Query: v.GetString("query"),
		Plain: v.GetBool("plain"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings needed by the selected provider and storage.
func (c Config) Validate() error {
	switch c.Provider {
	case "static", "http":
	case "onchain":
		if c.RPCURL == "" {
			return fmt.Errorf("rpc url is required for onchain provider")
		}
		if len(c.OnchainAssets) == 0 {
			return fmt.Errorf("onchain-asset list is required for onchain provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	switch c.Storage {
	case "file", "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("redis addr is required for redis storage")
		}
	case "postgres":
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required for postgres storage")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}
	return nil
}
