package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cryptoWatch/internal/model"
	"cryptoWatch/internal/provider"
)

func assets(ids ...string) []model.AssetSnapshot {
	out := make([]model.AssetSnapshot, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.AssetSnapshot{ID: id, Name: id, Symbol: id})
	}
	return out
}

func static(list []model.AssetSnapshot) provider.Func {
	return func(ctx context.Context) ([]model.AssetSnapshot, error) {
		return list, nil
	}
}

func failing(err error) provider.Func {
	return func(ctx context.Context) ([]model.AssetSnapshot, error) {
		return nil, err
	}
}

func TestLoadSuccess(t *testing.T) {
	loader := NewLoader(Config{}, static(assets("bitcoin", "ethereum")), nil)
	if loader.Status() != Idle {
		t.Fatalf("new loader should be idle, got %s", loader.Status())
	}
	if len(loader.Catalog()) != 0 {
		t.Fatalf("new loader should have empty catalog")
	}

	if status := loader.Load(context.Background()); status != Ready {
		t.Fatalf("status mismatch: %s", status)
	}
	if !model.EqualSlices(loader.Catalog(), assets("bitcoin", "ethereum")) {
		t.Fatalf("catalog mismatch: %+v", loader.Catalog())
	}
	if loader.Err() != nil {
		t.Fatalf("unexpected error: %v", loader.Err())
	}
	if loader.LoadedAt().IsZero() {
		t.Fatalf("loaded at not set")
	}
	if asset, ok := loader.Lookup("ethereum"); !ok || asset.ID != "ethereum" {
		t.Fatalf("lookup failed")
	}
	if _, ok := loader.Lookup("dogecoin"); ok {
		t.Fatalf("lookup should miss")
	}
}

func TestLoadFailureIsRecoveredAndLogged(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	boom := errors.New("provider unavailable")
	loader := NewLoader(Config{}, failing(boom), zap.New(core))

	if status := loader.Load(context.Background()); status != Failed {
		t.Fatalf("status mismatch: %s", status)
	}
	if len(loader.Catalog()) != 0 {
		t.Fatalf("catalog should stay empty")
	}

	loadErr := loader.Err()
	if loadErr == nil || !errors.Is(loadErr, boom) {
		t.Fatalf("expected wrapped provider error, got %v", loadErr)
	}
	if loadErr.LoadID == "" {
		t.Fatalf("load id missing")
	}
	if logs.FilterMessage("catalog load failed").Len() != 1 {
		t.Fatalf("failure was not logged: %+v", logs.All())
	}
}

func TestLoadFailureKeepsPreviousCatalog(t *testing.T) {
	var calls int32
	p := provider.Func(func(ctx context.Context) ([]model.AssetSnapshot, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return assets("bitcoin"), nil
		}
		return nil, errors.New("down")
	})
	loader := NewLoader(Config{}, p, nil)

	loader.Load(context.Background())
	if status := loader.Load(context.Background()); status != Failed {
		t.Fatalf("status mismatch: %s", status)
	}
	if !model.EqualSlices(loader.Catalog(), assets("bitcoin")) {
		t.Fatalf("previous catalog lost: %+v", loader.Catalog())
	}
}

func TestLoadRejectsInvalidCatalog(t *testing.T) {
	loader := NewLoader(Config{}, static(assets("bitcoin", "bitcoin")), nil)
	if status := loader.Load(context.Background()); status != Failed {
		t.Fatalf("status mismatch: %s", status)
	}
	if len(loader.Catalog()) != 0 {
		t.Fatalf("invalid catalog must not be installed")
	}
}

func TestLoadRetries(t *testing.T) {
	var calls int32
	p := provider.Func(func(ctx context.Context) ([]model.AssetSnapshot, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return nil, errors.New("flaky")
		}
		return assets("solana"), nil
	})
	loader := NewLoader(Config{MaxRetries: 2, RetryBackoff: time.Millisecond}, p, nil)

	if status := loader.Load(context.Background()); status != Ready {
		t.Fatalf("status mismatch: %s", status)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestLoadTimeout(t *testing.T) {
	p := provider.Func(func(ctx context.Context) ([]model.AssetSnapshot, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	loader := NewLoader(Config{Timeout: 10 * time.Millisecond}, p, nil)

	if status := loader.Load(context.Background()); status != Failed {
		t.Fatalf("status mismatch: %s", status)
	}
	if !errors.Is(loader.Err(), context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", loader.Err())
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	p := provider.Func(func(ctx context.Context) ([]model.AssetSnapshot, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return assets("stale"), nil
		}
		return assets("fresh"), nil
	})
	loader := NewLoader(Config{}, p, nil)

	first := loader.Start(context.Background())
	<-started

	if status := loader.Load(context.Background()); status != Ready {
		t.Fatalf("second load status: %s", status)
	}

	close(release)
	<-first

	if loader.Status() != Ready {
		t.Fatalf("status mismatch: %s", loader.Status())
	}
	if !model.EqualSlices(loader.Catalog(), assets("fresh")) {
		t.Fatalf("stale completion overwrote catalog: %+v", loader.Catalog())
	}
}

func TestStaleFailureDoesNotFailNewerLoad(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	p := provider.Func(func(ctx context.Context) ([]model.AssetSnapshot, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			<-release
			return nil, errors.New("late failure")
		}
		return assets("fresh"), nil
	})
	loader := NewLoader(Config{}, p, nil)

	first := loader.Start(context.Background())
	<-started
	loader.Load(context.Background())
	close(release)
	<-first

	if loader.Status() != Ready || loader.Err() != nil {
		t.Fatalf("stale failure leaked: %s %v", loader.Status(), loader.Err())
	}
}

func TestStatusString(t *testing.T) {
	want := map[Status]string{Idle: "idle", Loading: "loading", Ready: "ready", Failed: "failed"}
	for status, text := range want {
		if status.String() != text {
			t.Fatalf("%d: %q != %q", int(status), status.String(), text)
		}
	}
}

func TestLoadingStatusWhileInFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := provider.Func(func(ctx context.Context) ([]model.AssetSnapshot, error) {
		close(started)
		<-release
		return assets("bitcoin"), nil
	})
	loader := NewLoader(Config{}, p, nil)

	done := loader.Start(context.Background())
	<-started
	if loader.Status() != Loading {
		t.Fatalf("expected loading, got %s", loader.Status())
	}
	close(release)
	<-done
	if loader.Status() != Ready {
		t.Fatalf("expected ready, got %s", loader.Status())
	}
}
