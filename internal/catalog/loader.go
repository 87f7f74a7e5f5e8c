// Package catalog owns the asset catalog and its load lifecycle.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cryptoWatch/internal/model"
	"cryptoWatch/internal/provider"
)

// Status is the loader state.
type Status int

const (
	Idle Status = iota
	Loading
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// LoadError records why the latest load failed.
type LoadError struct {
	LoadID string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("provider load %s: %v", e.LoadID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Config controls retries and the per-load deadline.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// Timeout bounds a whole load including retries. Zero disables it.
	Timeout time.Duration
}

// Loader fetches the catalog from a provider and replaces it wholesale.
// Only the most recently issued load may change the state.
type Loader struct {
	cfg      Config
	provider provider.Provider
	logger   *zap.Logger

	mu       sync.RWMutex
	seq      uint64
	status   Status
	catalog  []model.AssetSnapshot
	lastErr  *LoadError
	loadedAt time.Time
}

// NewLoader builds a Loader in the Idle state with an empty catalog.
func NewLoader(cfg Config, p provider.Provider, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		cfg:      cfg,
		provider: p,
		logger:   logger,
		status:   Idle,
	}
}

// Start runs Load in the background. The returned channel closes when it completes.
func (l *Loader) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.Load(ctx)
	}()
	return done
}

// Load fetches and installs a new catalog. Failures are logged and recorded,
// never returned; the previous catalog stays in place.
func (l *Loader) Load(ctx context.Context) Status {
	loadID := uuid.NewString()

	l.mu.Lock()
	l.seq++
	token := l.seq
	l.status = Loading
	l.mu.Unlock()

	log := l.logger.With(zap.String("load_id", loadID), zap.Uint64("token", token))
	log.Info("catalog load start")
	started := time.Now()

	assets, err := l.fetch(ctx, log)
	if err == nil {
		err = model.ValidateCatalog(assets)
		if err != nil {
			err = fmt.Errorf("invalid catalog: %w", err)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if token != l.seq {
		log.Debug("discard stale catalog load", zap.Uint64("latest", l.seq), zap.Error(err))
		return l.status
	}

	if err != nil {
		l.status = Failed
		l.lastErr = &LoadError{LoadID: loadID, Err: err}
		log.Error("catalog load failed", zap.Error(err), zap.Duration("elapsed", time.Since(started)))
		return l.status
	}

	l.catalog = assets
	l.status = Ready
	l.lastErr = nil
	l.loadedAt = time.Now().UTC()
	log.Info("catalog load complete", zap.Int("assets", len(assets)), zap.Duration("elapsed", time.Since(started)))
	return l.status
}

func (l *Loader) fetch(ctx context.Context, log *zap.Logger) ([]model.AssetSnapshot, error) {
	if l.provider == nil {
		return nil, fmt.Errorf("provider is nil")
	}
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	var assets []model.AssetSnapshot
	attempt := 0
	err := withRetry(ctx, l.cfg.MaxRetries, l.cfg.RetryBackoff, func(ctx context.Context) error {
		attempt++
		var err error
		assets, err = l.provider.Assets(ctx)
		if err != nil {
			log.Warn("provider fetch failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	})
	return assets, err
}

// Status returns the current state.
func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Catalog returns a copy of the current catalog.
func (l *Loader) Catalog() []model.AssetSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.AssetSnapshot, len(l.catalog))
	copy(out, l.catalog)
	return out
}

// Err returns the failure of the latest load, or nil.
func (l *Loader) Err() *LoadError {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// LoadedAt returns when the current catalog was installed.
func (l *Loader) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// Lookup finds an asset by id in the current catalog.
func (l *Loader) Lookup(id string) (model.AssetSnapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, asset := range l.catalog {
		if asset.ID == id {
			return asset, true
		}
	}
	return model.AssetSnapshot{}, false
}
