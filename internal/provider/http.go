package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"cryptoWatch/internal/model"
)

// CoinGeckoMarketsURL lists the top assets by market cap in USD.
const CoinGeckoMarketsURL = "https://api.coingecko.com/api/v3/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=100&page=1"

// FieldPaths are jsonpath expressions evaluated against each item.
type FieldPaths struct {
	ID                    string
	Name                  string
	Symbol                string
	CurrentPrice          string
	PriceChangePercent24h string
	MarketCap             string
}

// CoinGeckoFields maps the /coins/markets item layout.
func CoinGeckoFields() FieldPaths {
	return FieldPaths{
		ID:                    "$.id",
		Name:                  "$.name",
		Symbol:                "$.symbol",
		CurrentPrice:          "$.current_price",
		PriceChangePercent24h: "$.price_change_percentage_24h",
		MarketCap:             "$.market_cap",
	}
}

// Override replaces paths by JSON key name (id, name, symbol, current_price,
// price_change_percentage_24h, market_cap).
func (f FieldPaths) Override(paths map[string]string) (FieldPaths, error) {
	for key, path := range paths {
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "id":
			f.ID = path
		case "name":
			f.Name = path
		case "symbol":
			f.Symbol = path
		case "current_price":
			f.CurrentPrice = path
		case "price_change_percentage_24h":
			f.PriceChangePercent24h = path
		case "market_cap":
			f.MarketCap = path
		default:
			return f, fmt.Errorf("unknown asset field %q", key)
		}
	}
	return f, nil
}

// HTTPConfig configures a REST market data source.
type HTTPConfig struct {
	URL          string
	APIKey       string
	APIKeyHeader string
	// ItemsPath selects the array of assets in the response document.
	ItemsPath    string
	Fields       FieldPaths
	UpperSymbols bool
	Timeout      time.Duration
}

// HTTP fetches the catalog from a JSON endpoint.
type HTTP struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTP builds an HTTP provider. Empty settings default to CoinGecko.
func NewHTTP(cfg HTTPConfig, client *http.Client, logger *zap.Logger) *HTTP {
	if cfg.URL == "" {
		cfg.URL = CoinGeckoMarketsURL
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "x-cg-demo-api-key"
	}
	if cfg.ItemsPath == "" {
		cfg.ItemsPath = "$"
	}
	if cfg.Fields == (FieldPaths{}) {
		cfg.Fields = CoinGeckoFields()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTP{cfg: cfg, client: client, logger: logger}
}

func (h *HTTP) Assets(ctx context.Context) ([]model.AssetSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if h.cfg.APIKey != "" {
		req.Header.Set(h.cfg.APIKeyHeader, h.cfg.APIKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("http get %s: status %d: %s", req.URL.Host, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items, err := jsonpath.Get(h.cfg.ItemsPath, doc)
	if err != nil {
		return nil, fmt.Errorf("select items %q: %w", h.cfg.ItemsPath, err)
	}
	list, ok := items.([]interface{})
	if !ok {
		return nil, fmt.Errorf("select items %q: expected array, got %T", h.cfg.ItemsPath, items)
	}

	assets := make([]model.AssetSnapshot, 0, len(list))
	for i, item := range list {
		asset, err := h.mapItem(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		assets = append(assets, asset)
	}

	h.logger.Debug("http catalog fetched", zap.String("host", req.URL.Host), zap.Int("assets", len(assets)))
	return assets, nil
}

func (h *HTTP) mapItem(item interface{}) (model.AssetSnapshot, error) {
	var (
		asset model.AssetSnapshot
		err   error
	)
	f := h.cfg.Fields

	if asset.ID, err = textField(f.ID, item); err != nil {
		return asset, err
	}
	if asset.Name, err = textField(f.Name, item); err != nil {
		return asset, err
	}
	if asset.Symbol, err = textField(f.Symbol, item); err != nil {
		return asset, err
	}
	if h.cfg.UpperSymbols {
		asset.Symbol = strings.ToUpper(asset.Symbol)
	}
	if asset.CurrentPrice, err = numberField(f.CurrentPrice, item); err != nil {
		return asset, err
	}
	if asset.PriceChangePercent24h, err = numberField(f.PriceChangePercent24h, item); err != nil {
		return asset, err
	}
	if asset.MarketCap, err = numberField(f.MarketCap, item); err != nil {
		return asset, err
	}
	return asset, nil
}

func lookup(path string, item interface{}) (interface{}, error) {
	val, err := jsonpath.Get(path, item)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", path, err)
	}
	// A path may yield a one-element list or the bare value.
	if list, ok := val.([]interface{}); ok {
		if len(list) == 0 {
			return nil, nil
		}
		val = list[0]
	}
	return val, nil
}

func textField(path string, item interface{}) (string, error) {
	val, err := lookup(path, item)
	if err != nil {
		return "", err
	}
	switch v := val.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

// numberField treats null as zero; providers report null for unknown metrics.
func numberField(path string, item interface{}) (decimal.Decimal, error) {
	val, err := lookup(path, item)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := val.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", path, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q: unsupported type %T", path, val)
	}
}
