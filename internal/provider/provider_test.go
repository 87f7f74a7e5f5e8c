package provider

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cryptoWatch/internal/model"
	"cryptoWatch/internal/token/tokentest"
)

func TestStaticReturnsCopy(t *testing.T) {
	p := NewStatic(0)
	first, err := p.Assets(context.Background())
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(first) != 8 || first[0].ID != "bitcoin" || first[7].ID != "avalanche" {
		t.Fatalf("unexpected demo catalog: %+v", first)
	}
	if err := model.ValidateCatalog(first); err != nil {
		t.Fatalf("demo catalog invalid: %v", err)
	}

	first[0].Name = "mutated"
	second, _ := p.Assets(context.Background())
	if second[0].Name != "Bitcoin" {
		t.Fatalf("static provider leaked its catalog")
	}
}

func TestStaticDelayHonoursContext(t *testing.T) {
	p := NewStatic(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Assets(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

const coinGeckoPayload = `[
  {"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":63452.78,"market_cap":1223456789012,"price_change_percentage_24h":2.34},
  {"id":"tether","symbol":"usdt","name":"Tether","current_price":1.0001,"market_cap":null,"price_change_percentage_24h":null}
]`

func TestHTTPCoinGecko(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-cg-demo-api-key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(coinGeckoPayload))
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{URL: srv.URL, APIKey: "secret", UpperSymbols: true}, srv.Client(), nil)
	assets, err := p.Assets(context.Background())
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header not sent: %q", gotKey)
	}

	want := []model.AssetSnapshot{
		{
			ID:                    "bitcoin",
			Name:                  "Bitcoin",
			Symbol:                "BTC",
			CurrentPrice:          decimal.RequireFromString("63452.78"),
			PriceChangePercent24h: decimal.RequireFromString("2.34"),
			MarketCap:             decimal.RequireFromString("1223456789012"),
		},
		{
			ID:           "tether",
			Name:         "Tether",
			Symbol:       "USDT",
			CurrentPrice: decimal.RequireFromString("1.0001"),
		},
	}
	if !model.EqualSlices(assets, want) {
		t.Fatalf("assets mismatch: %+v", assets)
	}
}

func TestHTTPCustomPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"coins":[{"slug":"ethereum","title":"Ethereum","ticker":"ETH","quote":{"price":"3456.78","change":-1.23,"cap":412345678901}}]}}`))
	}))
	defer srv.Close()

	p := NewHTTP(HTTPConfig{
		URL:       srv.URL,
		ItemsPath: "$.data.coins",
		Fields: FieldPaths{
			ID:                    "$.slug",
			Name:                  "$.title",
			Symbol:                "$.ticker",
			CurrentPrice:          "$.quote.price",
			PriceChangePercent24h: "$.quote.change",
			MarketCap:             "$.quote.cap",
		},
	}, srv.Client(), nil)

	assets, err := p.Assets(context.Background())
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(assets) != 1 || assets[0].ID != "ethereum" || !assets[0].CurrentPrice.Equal(decimal.RequireFromString("3456.78")) {
		t.Fatalf("assets mismatch: %+v", assets)
	}
	if !assets[0].PriceChangePercent24h.Equal(decimal.RequireFromString("-1.23")) {
		t.Fatalf("change mismatch: %s", assets[0].PriceChangePercent24h)
	}
}

func TestHTTPErrors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		},
		"not json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		},
		"not array": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"bad"}`))
		},
		"bad number": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"id":"x","name":"X","symbol":"x","current_price":"abc","market_cap":1,"price_change_percentage_24h":0}]`))
		},
	}

	for name, handler := range cases {
		srv := httptest.NewServer(handler)
		p := NewHTTP(HTTPConfig{URL: srv.URL}, srv.Client(), nil)
		if _, err := p.Assets(context.Background()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		srv.Close()
	}
}

func TestParseOnchainAssets(t *testing.T) {
	assets, err := ParseOnchainAssets([]string{
		" wbtc:0x1111111111111111111111111111111111111111:0x3333333333333333333333333333333333333333 ",
		"",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(assets) != 1 || assets[0].ID != "wbtc" || assets[0].Feed != common.HexToAddress("0x3333333333333333333333333333333333333333") {
		t.Fatalf("parse mismatch: %+v", assets)
	}

	for _, bad := range []string{"wbtc", ":0x1111111111111111111111111111111111111111:0x3333333333333333333333333333333333333333", "a:nothex:0x3333333333333333333333333333333333333333", "a:0x1111111111111111111111111111111111111111:zz"} {
		if _, err := ParseOnchainAssets([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestOnchainSnapshot(t *testing.T) {
	wbtc := common.HexToAddress("0x1111111111111111111111111111111111111111")
	weth := common.HexToAddress("0x2222222222222222222222222222222222222222")
	btcFeed := common.HexToAddress("0x3333333333333333333333333333333333333333")
	ethFeed := common.HexToAddress("0x4444444444444444444444444444444444444444")

	supplyWeth, _ := new(big.Int).SetString("3000000000000000000000000", 10)
	chain := &tokentest.Chain{
		Block: 19000000,
		Tokens: map[common.Address]tokentest.Token{
			wbtc: {Name: "Wrapped BTC", Symbol: "WBTC", Decimals: 8, TotalSupply: big.NewInt(15000000000000)},
			weth: {Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18, TotalSupply: supplyWeth},
		},
		Feeds: map[common.Address]tokentest.Feed{
			btcFeed: {Decimals: 8, Answer: big.NewInt(6345278000000)},
			ethFeed: {Decimals: 8, Answer: big.NewInt(345678000000)},
		},
	}

	p := NewOnchain(OnchainConfig{Assets: []OnchainAsset{
		{ID: "wrapped-bitcoin", Token: wbtc, Feed: btcFeed},
		{ID: "weth", Token: weth, Feed: ethFeed},
	}}, chain, nil)

	assets, err := p.Assets(context.Background())
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(assets) != 2 || assets[0].ID != "wrapped-bitcoin" || assets[1].ID != "weth" {
		t.Fatalf("order mismatch: %+v", assets)
	}

	btc := assets[0]
	if btc.Name != "Wrapped BTC" || btc.Symbol != "WBTC" {
		t.Fatalf("identity mismatch: %+v", btc)
	}
	if !btc.CurrentPrice.Equal(decimal.RequireFromString("63452.78")) {
		t.Fatalf("price mismatch: %s", btc.CurrentPrice)
	}
	// 150000 WBTC * 63452.78
	if !btc.MarketCap.Equal(decimal.RequireFromString("9517917000")) {
		t.Fatalf("market cap mismatch: %s", btc.MarketCap)
	}
	if !btc.PriceChangePercent24h.IsZero() {
		t.Fatalf("change should be zero: %s", btc.PriceChangePercent24h)
	}

	// 3,000,000 WETH * 3456.78
	if !assets[1].MarketCap.Equal(decimal.RequireFromString("10370340000")) {
		t.Fatalf("weth market cap mismatch: %s", assets[1].MarketCap)
	}

	pinned := 0
	for _, b := range chain.Blocks() {
		if b != nil {
			pinned++
			if b.Uint64() != 19000000 {
				t.Fatalf("call pinned to wrong block: %s", b)
			}
		}
	}
	// supply + feed decimals + latestRoundData, per asset
	if pinned != 6 {
		t.Fatalf("expected 6 pinned calls, got %d", pinned)
	}
}

func TestOnchainMissingFeed(t *testing.T) {
	wbtc := common.HexToAddress("0x1111111111111111111111111111111111111111")
	chain := &tokentest.Chain{
		Tokens: map[common.Address]tokentest.Token{
			wbtc: {Name: "Wrapped BTC", Symbol: "WBTC", Decimals: 8, TotalSupply: big.NewInt(1)},
		},
	}
	p := NewOnchain(OnchainConfig{Assets: []OnchainAsset{
		{ID: "wbtc", Token: wbtc, Feed: common.HexToAddress("0x9999999999999999999999999999999999999999")},
	}}, chain, nil)
	if _, err := p.Assets(context.Background()); err == nil {
		t.Fatalf("expected error for missing feed")
	}

	if _, err := NewOnchain(OnchainConfig{}, chain, nil).Assets(context.Background()); err == nil {
		t.Fatalf("expected error for empty config")
	}
}

func TestOnchainLogsChainIDOnce(t *testing.T) {
	wbtc := common.HexToAddress("0x1111111111111111111111111111111111111111")
	feed := common.HexToAddress("0x3333333333333333333333333333333333333333")
	chain := &tokentest.Chain{
		ID:    56,
		Block: 100,
		Tokens: map[common.Address]tokentest.Token{
			wbtc: {Name: "Wrapped BTC", Symbol: "WBTC", Decimals: 8, TotalSupply: big.NewInt(1)},
		},
		Feeds: map[common.Address]tokentest.Feed{
			feed: {Decimals: 8, Answer: big.NewInt(100000000)},
		},
	}

	core, logs := observer.New(zapcore.InfoLevel)
	p := NewOnchain(OnchainConfig{Assets: []OnchainAsset{
		{ID: "wbtc", Token: wbtc, Feed: feed},
	}}, chain, zap.New(core))

	for i := 0; i < 2; i++ {
		if _, err := p.Assets(context.Background()); err != nil {
			t.Fatalf("assets: %v", err)
		}
	}

	entries := logs.FilterMessage("onchain provider connected").All()
	if len(entries) != 1 {
		t.Fatalf("expected one connect log, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["chain_id"]; got != "56" {
		t.Fatalf("chain id mismatch: %v", got)
	}
}

func TestFieldPathsOverride(t *testing.T) {
	fields, err := CoinGeckoFields().Override(map[string]string{
		"current_price": "$.quote.USD.price",
		" Market_Cap ":  "$.quote.USD.market_cap",
	})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if fields.CurrentPrice != "$.quote.USD.price" || fields.MarketCap != "$.quote.USD.market_cap" {
		t.Fatalf("paths not replaced: %+v", fields)
	}
	if fields.ID != "$.id" || fields.Symbol != "$.symbol" {
		t.Fatalf("untouched paths changed: %+v", fields)
	}

	if _, err := CoinGeckoFields().Override(map[string]string{"volume": "$.v"}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}
