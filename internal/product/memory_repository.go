package product

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	products map[string]Product
}

// NewMemoryRepository builds an in-memory catalog store for tests and
// development. Upsert merges under a single lock, matching the Postgres
// ON CONFLICT semantics.
func NewMemoryRepository() Repository {
	return &memoryRepository{products: make(map[string]Product)}
}

func (r *memoryRepository) FindByBarcode(_ context.Context, barcode string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[barcode]
	if !ok {
		return Product{}, ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *memoryRepository) Upsert(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.products[p.Barcode]
	if !ok {
		p.ScanCount = 0
		p.AverageRating = 0
		p.Prices = nil
		p.CreatedAt = now
		p.UpdatedAt = now
		r.products[p.Barcode] = p
		return cloneProduct(p), nil
	}

	merged := merge(existing, p)
	merged.UpdatedAt = now
	r.products[p.Barcode] = merged
	return cloneProduct(merged), nil
}

func (r *memoryRepository) RecordObservation(_ context.Context, barcode string, scanIncrement int64, obs *PriceObservation) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[barcode]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.ScanCount += scanIncrement
	if obs != nil {
		p.Prices = append(p.Prices, *obs)
	}
	p.UpdatedAt = time.Now().UTC()
	r.products[barcode] = p
	return cloneProduct(p), nil
}

func (r *memoryRepository) Search(_ context.Context, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []Product
	for _, p := range r.products {
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Brand), needle) {
			out = append(out, cloneProduct(p))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].ScanCount != out[j].ScanCount {
			return out[i].ScanCount > out[j].ScanCount
		}
		return out[i].Barcode < out[j].Barcode
	})
	if len(out) > SearchPageSize {
		out = out[:SearchPageSize]
	}
	return out, nil
}

func cloneProduct(p Product) Product {
	out := p
	out.Certifications = append([]string(nil), p.Certifications...)
	out.Prices = append([]PriceObservation(nil), p.Prices...)
	return out
}
