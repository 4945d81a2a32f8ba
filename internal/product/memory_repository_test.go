package product

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestUpsertInsertThenFill(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first, err := repo.Upsert(ctx, Product{
		Barcode:  "012000161551",
		Name:     "Pepsi",
		Brand:    "Pepsi",
		Category: "Beverages",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ScanCount != 0 {
		t.Fatalf("new product scan count = %d, want 0", first.ScanCount)
	}

	// A second writer with richer data fills only the empty fields.
	merged, err := repo.Upsert(ctx, Product{
		Barcode:     "012000161551",
		Name:        "Pepsi Cola",
		Description: "Carbonated soft drink",
		Nutrition:   Nutrition{Calories: 150, Sugar: 41},
	})
	if err != nil {
		t.Fatalf("merge upsert: %v", err)
	}
	if merged.Name != "Pepsi" {
		t.Fatalf("identity field overwritten: %s", merged.Name)
	}
	if merged.Description != "Carbonated soft drink" {
		t.Fatalf("empty field not filled: %q", merged.Description)
	}
	if merged.Nutrition.Calories != 150 {
		t.Fatalf("nutrition not filled: %+v", merged.Nutrition)
	}
}

func TestUpsertNeverTouchesCuratedFields(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, Product{Barcode: "b1", Name: "Thing"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.RecordObservation(ctx, "b1", 3, nil); err != nil {
		t.Fatalf("seed scan count: %v", err)
	}

	// Remote payloads carry a zero rating; the stored rating must survive.
	mem := repo.(*memoryRepository)
	mem.mu.Lock()
	p := mem.products["b1"]
	p.AverageRating = 4.5
	mem.products["b1"] = p
	mem.mu.Unlock()

	after, err := repo.Upsert(ctx, Product{Barcode: "b1", Name: "Thing Remote", Brand: "Acme"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if after.AverageRating != 4.5 {
		t.Fatalf("curated rating clobbered: %v", after.AverageRating)
	}
	if after.ScanCount != 3 {
		t.Fatalf("scan count clobbered: %d", after.ScanCount)
	}
	if after.Brand != "Acme" {
		t.Fatalf("empty brand not filled: %q", after.Brand)
	}
}

func TestConcurrentUpsertSingleRecord(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Upsert(ctx, Product{Barcode: "race", Name: fmt.Sprintf("writer-%d", i)})
			if err != nil {
				t.Errorf("upsert %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	mem := repo.(*memoryRepository)
	mem.mu.RLock()
	count := len(mem.products)
	mem.mu.RUnlock()
	if count != 1 {
		t.Fatalf("expected exactly one record, got %d", count)
	}
}

func TestRecordObservationAppendsWithoutDedup(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	if _, err := repo.Upsert(ctx, Product{Barcode: "b2", Name: "Juice"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	obs := PriceObservation{Retailer: "MegaMart", Price: 2.49, ObservedAt: time.Now().UTC()}
	if _, err := repo.RecordObservation(ctx, "b2", 1, &obs); err != nil {
		t.Fatalf("first observation: %v", err)
	}
	updated, err := repo.RecordObservation(ctx, "b2", 1, &obs)
	if err != nil {
		t.Fatalf("second observation: %v", err)
	}

	if updated.ScanCount != 2 {
		t.Fatalf("scan count = %d, want 2", updated.ScanCount)
	}
	if len(updated.Prices) != 2 {
		t.Fatalf("expected two price entries for the same retailer, got %d", len(updated.Prices))
	}

	if _, err := repo.RecordObservation(ctx, "missing", 1, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		_, err := repo.Upsert(ctx, Product{
			Barcode: fmt.Sprintf("code-%02d", i),
			Name:    fmt.Sprintf("Granola Bar %d", i),
			Brand:   "Crunchy Co",
		})
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}
	if _, err := repo.Upsert(ctx, Product{Barcode: "other", Name: "Soda", Brand: "Fizz"}); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	results, err := repo.Search(ctx, "granola")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != SearchPageSize {
		t.Fatalf("expected page of %d, got %d", SearchPageSize, len(results))
	}

	byBrand, err := repo.Search(ctx, "fizz")
	if err != nil {
		t.Fatalf("brand search: %v", err)
	}
	if len(byBrand) != 1 || byBrand[0].Barcode != "other" {
		t.Fatalf("unexpected brand search results: %+v", byBrand)
	}

	if _, err := repo.Search(ctx, "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}
