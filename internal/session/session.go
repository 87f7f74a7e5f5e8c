// Package session composes the catalog, the search query and the watchlist
// into the view a front end renders.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cryptoWatch/internal/catalog"
	"cryptoWatch/internal/filter"
	"cryptoWatch/internal/format"
	"cryptoWatch/internal/model"
	"cryptoWatch/internal/watchlist"
)

var ErrUnknownAsset = errors.New("unknown asset")

// Row is one pre-formatted table line.
type Row struct {
	Rank      int
	ID        string
	Name      string
	Symbol    string
	Price     string
	Change    string
	Direction format.Direction
	MarketCap string
	Watched   bool
}

type Session struct {
	loader    *catalog.Loader
	watch     *watchlist.Store
	formatter format.Formatter

	mu    sync.RWMutex
	query string
}

func New(loader *catalog.Loader, watch *watchlist.Store, formatter format.Formatter) (*Session, error) {
	if loader == nil {
		return nil, fmt.Errorf("catalog loader is nil")
	}
	if watch == nil {
		return nil, fmt.Errorf("watchlist store is nil")
	}
	return &Session{loader: loader, watch: watch, formatter: formatter}, nil
}

// Load runs a catalog load and waits for it.
func (s *Session) Load(ctx context.Context) catalog.Status {
	return s.loader.Load(ctx)
}

// Start runs a catalog load in the background; the channel closes when done.
func (s *Session) Start(ctx context.Context) <-chan struct{} {
	return s.loader.Start(ctx)
}

func (s *Session) Catalog() []model.AssetSnapshot { return s.loader.Catalog() }

func (s *Session) Status() catalog.Status { return s.loader.Status() }

// Err returns the last load failure, or nil.
func (s *Session) Err() error {
	if err := s.loader.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	s.query = query
	s.mu.Unlock()
}

func (s *Session) Query() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query
}

// Filtered is recomputed from the current catalog and query on every call.
func (s *Session) Filtered() []model.AssetSnapshot {
	return filter.Filter(s.loader.Catalog(), s.Query())
}

func (s *Session) Watchlist() []model.AssetSnapshot { return s.watch.Items() }

func (s *Session) Toggle(ctx context.Context, asset model.AssetSnapshot) (bool, error) {
	return s.watch.Toggle(ctx, asset)
}

// ToggleID toggles by id, using the catalog snapshot when present and the
// watched snapshot otherwise so stale entries can still be removed.
func (s *Session) ToggleID(ctx context.Context, id string) (bool, error) {
	if asset, ok := s.loader.Lookup(id); ok {
		return s.watch.Toggle(ctx, asset)
	}
	if asset, ok := s.watch.Get(id); ok {
		return s.watch.Toggle(ctx, asset)
	}
	return false, fmt.Errorf("toggle %q: %w", id, ErrUnknownAsset)
}

func (s *Session) IsWatched(id string) bool { return s.watch.IsWatched(id) }

func (s *Session) Formatter() format.Formatter { return s.formatter }

// MarketRows renders the filtered catalog.
func (s *Session) MarketRows() []Row {
	return s.rows(s.Filtered())
}

// WatchlistRows renders the watchlist in insertion order.
func (s *Session) WatchlistRows() []Row {
	return s.rows(s.watch.Items())
}

func (s *Session) rows(assets []model.AssetSnapshot) []Row {
	rows := make([]Row, 0, len(assets))
	for i, asset := range assets {
		change, dir := s.formatter.Change(asset.PriceChangePercent24h)
		rows = append(rows, Row{
			Rank:      i + 1,
			ID:        asset.ID,
			Name:      asset.Name,
			Symbol:    asset.Symbol,
			Price:     s.formatter.Price(asset.CurrentPrice),
			Change:    change,
			Direction: dir,
			MarketCap: s.formatter.MarketCap(asset.MarketCap),
			Watched:   s.watch.IsWatched(asset.ID),
		})
	}
	return rows
}
