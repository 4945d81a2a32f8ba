package product

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	cachePrefix    = "product:v1:"
	hotCacheSize   = 1024
	cacheOpTimeout = 2 * time.Second
)

// CachedRepository decorates a Repository with an in-process LRU in front of
// Redis. Only resolved products are cached; misses are never cached because
// a future remote lookup may succeed. Cache failures degrade to the inner
// store rather than failing the request.
type CachedRepository struct {
	inner  Repository
	cache  *redis.Client
	hot    *lru.LRU[string, Product]
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedRepository wraps the inner store with the two cache tiers.
func NewCachedRepository(inner Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{
		inner:  inner,
		cache:  cache,
		hot:    lru.NewLRU[string, Product](hotCacheSize, nil, ttl),
		ttl:    ttl,
		logger: logger,
	}
}

// FindByBarcode checks the hot cache, then Redis, then the inner store.
func (r *CachedRepository) FindByBarcode(ctx context.Context, barcode string) (Product, error) {
	if p, ok := r.hot.Get(barcode); ok {
		return p, nil
	}

	if r.cache != nil {
		opCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
		defer cancel()
		payload, err := r.cache.Get(opCtx, cachePrefix+barcode).Bytes()
		if err == nil {
			var p Product
			if err := json.Unmarshal(payload, &p); err == nil {
				r.hot.Add(barcode, p)
				return p, nil
			}
			r.logger.Warn("corrupt cached product", "barcode", barcode)
		} else if err != redis.Nil {
			r.logger.Warn("product cache lookup failed", "barcode", barcode, "error", err)
		}
	}

	p, err := r.inner.FindByBarcode(ctx, barcode)
	if err != nil {
		return Product{}, err
	}
	r.store(ctx, p)
	return p, nil
}

// Upsert writes through and refreshes both cache tiers with the merged row.
func (r *CachedRepository) Upsert(ctx context.Context, p Product) (Product, error) {
	stored, err := r.inner.Upsert(ctx, p)
	if err != nil {
		return Product{}, err
	}
	r.store(ctx, stored)
	return stored, nil
}

// RecordObservation writes through and refreshes the caches so scan counts
// served from cache stay current.
func (r *CachedRepository) RecordObservation(ctx context.Context, barcode string, scanIncrement int64, obs *PriceObservation) (Product, error) {
	updated, err := r.inner.RecordObservation(ctx, barcode, scanIncrement, obs)
	if err != nil {
		return Product{}, err
	}
	r.store(ctx, updated)
	return updated, nil
}

// Search always hits the inner store; result pages are not cached.
func (r *CachedRepository) Search(ctx context.Context, query string) ([]Product, error) {
	return r.inner.Search(ctx, query)
}

func (r *CachedRepository) store(ctx context.Context, p Product) {
	r.hot.Add(p.Barcode, p)
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := r.cache.Set(opCtx, cachePrefix+p.Barcode, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("product cache write failed", "barcode", p.Barcode, "error", err)
	}
}
