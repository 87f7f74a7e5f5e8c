// Package watchlist keeps the user's ordered watchlist in sync with storage.
package watchlist

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"cryptoWatch/internal/model"
	"cryptoWatch/internal/storage"
)

// DefaultKey is the storage key the watchlist lives under.
const DefaultKey = "cryptoWatchlist"

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store owns the watchlist. Every mutation is written through to kv.
type Store struct {
	kv     storage.Store
	key    string
	logger *zap.Logger

	mu      sync.RWMutex
	items   []model.AssetSnapshot
	index   map[string]int
	seedErr *SeedError
}

// Open seeds the store from kv. A missing, unreadable or corrupt value
// yields an empty watchlist; the cause is logged and kept in SeedErr.
func Open(ctx context.Context, kv storage.Store, opts ...Option) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("watchlist storage is nil")
	}
	s := &Store{
		kv:     kv,
		key:    DefaultKey,
		logger: zap.NewNop(),
		index:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := kv.Get(ctx, s.key)
	switch {
	case err != nil:
		s.seedErr = &SeedError{Kind: ReadFailure, Key: s.key, Err: err}
	case !ok:
		s.logger.Debug("watchlist not found, starting empty", zap.String("key", s.key))
	default:
		items, decodeErr := Decode(raw)
		if decodeErr != nil {
			s.seedErr = &SeedError{Kind: DecodeFailure, Key: s.key, Err: decodeErr}
			break
		}
		s.items = items
		s.reindex()
	}

	if s.seedErr != nil {
		s.logger.Warn("watchlist seed failed, starting empty",
			zap.String("key", s.key),
			zap.Stringer("kind", s.seedErr.Kind),
			zap.Error(s.seedErr.Err),
		)
	} else {
		s.logger.Info("watchlist opened", zap.String("key", s.key), zap.Int("items", len(s.items)))
	}
	return s, nil
}

// Toggle removes asset when watched and appends it otherwise, then persists
// the whole list. On a failed write the in-memory change is undone.
func (s *Store) Toggle(ctx context.Context, asset model.AssetSnapshot) (bool, error) {
	if asset.ID == "" {
		return false, fmt.Errorf("asset id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.items
	next := make([]model.AssetSnapshot, 0, len(prev)+1)
	watched := false
	if pos, ok := s.index[asset.ID]; ok {
		next = append(next, prev[:pos]...)
		next = append(next, prev[pos+1:]...)
	} else {
		next = append(next, prev...)
		next = append(next, asset)
		watched = true
	}

	encoded, err := Encode(next)
	if err != nil {
		return s.isWatchedLocked(asset.ID), err
	}
	if err := s.kv.Set(ctx, s.key, encoded); err != nil {
		s.logger.Error("watchlist persist failed",
			zap.String("key", s.key),
			zap.String("asset", asset.ID),
			zap.Error(err),
		)
		return s.isWatchedLocked(asset.ID), &PersistError{Key: s.key, Err: err}
	}

	s.items = next
	s.reindex()
	s.logger.Debug("watchlist toggled",
		zap.String("asset", asset.ID),
		zap.Bool("watched", watched),
		zap.Int("items", len(next)),
	)
	return watched, nil
}

func (s *Store) IsWatched(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isWatchedLocked(id)
}

// Get returns the watched snapshot for id.
func (s *Store) Get(id string) (model.AssetSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return model.AssetSnapshot{}, false
	}
	return s.items[pos], true
}

// Items returns a copy of the watchlist in insertion order.
func (s *Store) Items() []model.AssetSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AssetSnapshot, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Key() string { return s.key }

// SeedErr reports why Open fell back to an empty list, or nil.
func (s *Store) SeedErr() *SeedError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seedErr
}

func (s *Store) isWatchedLocked(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Store) reindex() {
	index := make(map[string]int, len(s.items))
	for i, item := range s.items {
		index[item.ID] = i
	}
	s.index = index
}
