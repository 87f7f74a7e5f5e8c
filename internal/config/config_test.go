package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("provider", "static", "")
	flags.String("storage", "file", "")
	flags.StringSlice("onchain-asset", nil, "")
	flags.StringToString("provider-fields", nil, "")
	flags.String("rpc", "", "")
	flags.Int("max-retries", 3, "")
	flags.Bool("plain", false, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", testFlags())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != "static" || cfg.Storage != "file" || cfg.StorageDir != "./data" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.WatchlistKey != "cryptoWatchlist" || cfg.Currency != "USD" || cfg.LogLevel != "warn" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxRetries != 3 || cfg.RetryBackoff != 500*time.Millisecond || cfg.LoadTimeout != 30*time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.OnchainAssets != nil {
		t.Fatalf("expected no onchain assets, got %v", cfg.OnchainAssets)
	}
}

func TestLoadFlagsAndEnv(t *testing.T) {
	t.Setenv("CRYPTOWATCH_STORAGE", "Redis")
	t.Setenv("CRYPTOWATCH_REDIS_ADDR", "localhost:6379")
	t.Setenv("CRYPTOWATCH_PROVIDER_DELAY", "1500ms")

	flags := testFlags()
	if err := flags.Parse([]string{
		"--provider", "onchain",
		"--rpc", "http://localhost:8545",
		"--onchain-asset", "weth:0x01:0x02, wbtc:0x03:0x04",
		"--provider-fields", "current_price=$.quote.price",
		"--plain",
	}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage != "redis" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.ProviderDelay != 1500*time.Millisecond {
		t.Fatalf("delay mismatch: %s", cfg.ProviderDelay)
	}
	if cfg.Provider != "onchain" || !cfg.Plain {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.OnchainAssets, []string{"weth:0x01:0x02", "wbtc:0x03:0x04"}) {
		t.Fatalf("onchain assets mismatch: %v", cfg.OnchainAssets)
	}
	if cfg.ProviderFields["current_price"] != "$.quote.price" {
		t.Fatalf("provider fields mismatch: %v", cfg.ProviderFields)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cryptowatch.yaml")
	content := `
provider: http
provider-url: https://example.test/markets
provider-items-path: $.data
provider-fields:
  id: $.slug
  market_cap: $.quote.cap
storage: s3
s3-bucket: watchlists
s3-prefix: users/alice
currency: eur
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path, testFlags())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider != "http" || cfg.ProviderURL != "https://example.test/markets" || cfg.ProviderItemsPath != "$.data" {
		t.Fatalf("provider settings mismatch: %+v", cfg)
	}
	want := map[string]string{"id": "$.slug", "market_cap": "$.quote.cap"}
	if !reflect.DeepEqual(cfg.ProviderFields, want) {
		t.Fatalf("provider fields mismatch: %v", cfg.ProviderFields)
	}
	if cfg.Storage != "s3" || cfg.S3Bucket != "watchlists" || cfg.S3Prefix != "users/alice" || cfg.S3Region != "us-east-1" {
		t.Fatalf("s3 settings mismatch: %+v", cfg)
	}
	if cfg.Currency != "eur" {
		t.Fatalf("currency mismatch: %q", cfg.Currency)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{Provider: "static", Storage: "file"}
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"unknown provider", func(c *Config) { c.Provider = "ftp" }, false},
		{"onchain without rpc", func(c *Config) { c.Provider = "onchain"; c.OnchainAssets = []string{"a:b:c"} }, false},
		{"onchain without assets", func(c *Config) { c.Provider = "onchain"; c.RPCURL = "http://rpc" }, false},
		{"unknown storage", func(c *Config) { c.Storage = "floppy" }, false},
		{"redis without addr", func(c *Config) { c.Storage = "redis" }, false},
		{"postgres without dsn", func(c *Config) { c.Storage = "postgres" }, false},
		{"postgres", func(c *Config) { c.Storage = "postgres"; c.PGDSN = "postgres://x" }, true},
		{"s3 without bucket", func(c *Config) { c.Storage = "s3" }, false},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, false},
	}

	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap(" id = $.slug ,broken, =x, name=$.title")
	want := map[string]string{"id": "$.slug", "name": "$.title"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("parse mismatch: %v", got)
	}
}
