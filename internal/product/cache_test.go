package product

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tulip-app/tulip/internal/logging"
)

func setupCachedRepo(t *testing.T) (*CachedRepository, Repository, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := NewMemoryRepository()
	return NewCachedRepository(inner, client, time.Minute, logging.Discard()), inner, mr
}

func TestCachedFindPopulatesRedis(t *testing.T) {
	cached, inner, mr := setupCachedRepo(t)
	ctx := context.Background()

	if _, err := inner.Upsert(ctx, Product{Barcode: "c1", Name: "Oats"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	p, err := cached.FindByBarcode(ctx, "c1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if p.Name != "Oats" {
		t.Fatalf("unexpected product: %+v", p)
	}
	if !mr.Exists(cachePrefix + "c1") {
		t.Fatalf("expected redis cache entry after find")
	}
}

func TestCachedFindMissIsNotCached(t *testing.T) {
	cached, _, mr := setupCachedRepo(t)
	ctx := context.Background()

	if _, err := cached.FindByBarcode(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if mr.Exists(cachePrefix + "ghost") {
		t.Fatalf("negative result must not be cached")
	}
}

func TestCachedObservationRefreshesEntry(t *testing.T) {
	cached, _, _ := setupCachedRepo(t)
	ctx := context.Background()

	if _, err := cached.Upsert(ctx, Product{Barcode: "c2", Name: "Tea"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := cached.RecordObservation(ctx, "c2", 1, nil); err != nil {
		t.Fatalf("observe: %v", err)
	}

	p, err := cached.FindByBarcode(ctx, "c2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if p.ScanCount != 1 {
		t.Fatalf("cached scan count = %d, want 1", p.ScanCount)
	}
}

func TestCachedFindSurvivesRedisOutage(t *testing.T) {
	cached, inner, mr := setupCachedRepo(t)
	ctx := context.Background()

	if _, err := inner.Upsert(ctx, Product{Barcode: "c3", Name: "Rice"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	mr.Close()

	p, err := cached.FindByBarcode(ctx, "c3")
	if err != nil {
		t.Fatalf("find during outage: %v", err)
	}
	if p.Name != "Rice" {
		t.Fatalf("unexpected product: %+v", p)
	}
}
